package partial

// span is the byte range of one balanced object inside a list.
type span struct {
	start, end int // end is exclusive
}

// listScan is the outcome of walking a JSON array body.
type listScan struct {
	objects []span
	// closed is true when the array's closing bracket was reached.
	closed bool
	// open is the start of an object that began but never balanced, or -1.
	open int
}

// scanObjects walks s, which starts just after an array's opening bracket,
// and returns every top-level object whose braces are balanced. String
// contents are skipped, including escaped quotes, so braces inside strings
// never affect the depth. The walk stops at the array's closing bracket or
// at the end of s; an object still open at that point is not returned.
func scanObjects(s string) listScan {
	res := listScan{open: -1}
	depth := 0
	inString := false
	escaped := false
	start := -1

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth < 0 {
				return res
			}
			if depth == 0 && start >= 0 {
				res.objects = append(res.objects, span{start: start, end: i + 1})
				start = -1
			}
		case ']':
			if depth == 0 {
				res.closed = true
				return res
			}
		}
	}
	if depth > 0 {
		res.open = start
	}
	return res
}
