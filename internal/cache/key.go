package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies one cacheable query: a resource class plus its parameters.
// Keys are comparable; two keys are equal when class and every parameter
// render identically, including the number of parameters.
type Key struct {
	Class string
	Args  string
}

// NewKey builds a key from a class and an ordered parameter tuple. A slice
// of strings forms one list parameter; read it back with List.
func NewKey(class string, params ...any) Key {
	var b strings.Builder
	for _, p := range params {
		var v string
		switch p := p.(type) {
		case []string:
			v = joinList(p)
		default:
			v = fmt.Sprint(p)
		}
		// Length prefix keeps parameter boundaries unambiguous.
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return Key{Class: class, Args: b.String()}
}

// Params returns the rendered parameters in order.
func (k Key) Params() []string {
	var out []string
	rest := k.Args
	for rest != "" {
		colon := strings.IndexByte(rest, ':')
		if colon < 0 {
			break
		}
		n, err := strconv.Atoi(rest[:colon])
		if err != nil || n < 0 || colon+1+n > len(rest) {
			break
		}
		out = append(out, rest[colon+1:colon+1+n])
		rest = rest[colon+1+n:]
	}
	return out
}

// Param returns the i-th parameter, or "" when absent.
func (k Key) Param(i int) string {
	params := k.Params()
	if i < 0 || i >= len(params) {
		return ""
	}
	return params[i]
}

// List returns the i-th parameter as the string slice it was built from.
func (k Key) List(i int) []string {
	return splitList(k.Param(i))
}

func (k Key) String() string {
	return k.Class + "(" + strings.Join(k.Params(), ", ") + ")"
}

// joinList joins items with commas, escaping commas and backslashes inside
// items so that {"a,b"} and {"a", "b"} stay distinct.
func joinList(items []string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		item = strings.ReplaceAll(item, `\`, `\\`)
		escaped[i] = strings.ReplaceAll(item, ",", `\,`)
	}
	return strings.Join(escaped, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == ',':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(out, cur.String())
}
