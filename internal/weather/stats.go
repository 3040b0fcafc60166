package weather

// Reductions over hourly series. Provider arrays may be short or carry JSON
// nulls, so every element is a pointer; nil elements are excluded from the
// reduction and an empty input yields nil, never zero.

func minOf(values []*float64) *float64 {
	var out *float64
	for _, v := range values {
		if v == nil {
			continue
		}
		if out == nil || *v < *out {
			val := *v
			out = &val
		}
	}
	return out
}

func maxOf(values []*float64) *float64 {
	var out *float64
	for _, v := range values {
		if v == nil {
			continue
		}
		if out == nil || *v > *out {
			val := *v
			out = &val
		}
	}
	return out
}

func meanOf(values []*float64) *float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// modalDescription picks the most frequent weather description among a set of
// hourly codes. Ties break toward the description seen first.
func modalDescription(codes []*int) string {
	counts := make(map[string]int)
	var order []string

	for _, code := range codes {
		if code == nil {
			continue
		}
		desc := LookupCode(code).Description
		if _, seen := counts[desc]; !seen {
			order = append(order, desc)
		}
		counts[desc]++
	}

	best := ""
	bestCount := 0
	for _, desc := range order {
		if counts[desc] > bestCount {
			best = desc
			bestCount = counts[desc]
		}
	}
	return best
}
