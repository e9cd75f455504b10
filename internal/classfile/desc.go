package classfile

import (
	"fmt"
	"strings"
)

// ArgSlots returns the operand stack slots taken by a method descriptor's
// arguments and its return value.
func ArgSlots(desc string) (args, ret int, err error) {
	if !strings.HasPrefix(desc, "(") {
		return 0, 0, fmt.Errorf("method descriptor %q does not start with '('", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		size, next, err := fieldSlots(desc, i)
		if err != nil {
			return 0, 0, err
		}
		args += size
		i = next
	}
	if i >= len(desc) {
		return 0, 0, fmt.Errorf("method descriptor %q has no ')'", desc)
	}
	i++
	if i < len(desc) && desc[i] == 'V' {
		if i+1 != len(desc) {
			return 0, 0, fmt.Errorf("method descriptor %q has trailing data", desc)
		}
		return args, 0, nil
	}
	ret, next, err := fieldSlots(desc, i)
	if err != nil {
		return 0, 0, err
	}
	if next != len(desc) {
		return 0, 0, fmt.Errorf("method descriptor %q has trailing data", desc)
	}
	return args, ret, nil
}

func fieldSlots(desc string, i int) (size, next int, err error) {
	if i >= len(desc) {
		return 0, i, fmt.Errorf("descriptor %q truncated", desc)
	}
	switch desc[i] {
	case 'B', 'C', 'F', 'I', 'S', 'Z':
		return 1, i + 1, nil
	case 'D', 'J':
		return 2, i + 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return 0, i, fmt.Errorf("descriptor %q: unterminated class type", desc)
		}
		return 1, i + end + 1, nil
	case '[':
		j := i
		for j < len(desc) && desc[j] == '[' {
			j++
		}
		_, next, err := fieldSlots(desc, j)
		return 1, next, err
	}
	return 0, i, fmt.Errorf("descriptor %q: bad type character %q at %d", desc, desc[i], i)
}
