package store

// Span is a half-open index range into a record slice.
type Span struct {
	Start, End int
}

// SubBatches cuts n records into spans of at most size, preserving order.
func SubBatches(n, size int) []Span {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}
