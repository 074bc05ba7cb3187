package middleware

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// scanFrame tracks one open JSON container during the duplicate-key scan.
// For arrays, nextIndex counts the elements seen so far so that child
// containers get an indexed path segment.
type scanFrame struct {
	path       string
	isObject   bool
	keys       map[string]struct{}
	pendingKey string
	expectKey  bool
	nextIndex  int
}

// findDuplicateKey token-scans raw JSON text for a key appearing twice in
// one object, at any depth including inside arrays. It returns the JSON
// path of the first duplicate. Syntax errors end the scan without a match;
// the subsequent full parse reports them.
func findDuplicateKey(body string) (string, bool) {
	decoder := json.NewDecoder(strings.NewReader(body))
	decoder.UseNumber()

	var stack []*scanFrame
	top := func() *scanFrame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return "", false
		}

		switch t := token.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				path := "$"
				if parent := top(); parent != nil {
					if parent.isObject {
						path = parent.path + "." + parent.pendingKey
					} else {
						path = fmt.Sprintf("%s[%d]", parent.path, parent.nextIndex)
						parent.nextIndex++
					}
				}
				stack = append(stack, &scanFrame{
					path:      path,
					isObject:  t == '{',
					keys:      map[string]struct{}{},
					expectKey: t == '{',
				})
			case '}', ']':
				stack = stack[:len(stack)-1]
				if parent := top(); parent != nil && parent.isObject {
					parent.expectKey = true
				}
			}
		default:
			frame := top()
			if frame == nil {
				continue
			}
			if !frame.isObject {
				frame.nextIndex++
				continue
			}
			if frame.expectKey {
				key, ok := t.(string)
				if !ok {
					return "", false
				}
				if _, seen := frame.keys[key]; seen {
					return frame.path + "." + key, true
				}
				frame.keys[key] = struct{}{}
				frame.pendingKey = key
				frame.expectKey = false
			} else {
				frame.expectKey = true
			}
		}
	}
}
