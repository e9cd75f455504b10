package classfile

import (
	"strings"
	"unicode/utf8"
)

// encodeModifiedUTF8 converts a Go string into the JVM's modified UTF-8:
// NUL becomes 0xC0 0x80 and supplementary characters become surrogate pairs.
func encodeModifiedUTF8(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == 0:
			b.WriteByte(0xC0)
			b.WriteByte(0x80)
		case r < 0x80:
			b.WriteByte(byte(r))
		case r < 0x800:
			b.WriteByte(byte(0xC0 | (r >> 6)))
			b.WriteByte(byte(0x80 | (r & 0x3F)))
		case r < 0x10000:
			writeUnit3(&b, uint16(r))
		default:
			r -= 0x10000
			writeUnit3(&b, uint16(0xD800+(r>>10)))
			writeUnit3(&b, uint16(0xDC00+(r&0x3FF)))
		}
	}
	return b.String()
}

func writeUnit3(b *strings.Builder, u uint16) {
	b.WriteByte(byte(0xE0 | (u >> 12)))
	b.WriteByte(byte(0x80 | ((u >> 6) & 0x3F)))
	b.WriteByte(byte(0x80 | (u & 0x3F)))
}

// decodeModifiedUTF8 is the inverse of encodeModifiedUTF8. Malformed bytes
// decode to utf8.RuneError rather than failing.
func decodeModifiedUTF8(raw string) string {
	ascii := true
	for i := 0; i < len(raw); i++ {
		if raw[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return raw
	}
	units := make([]uint16, 0, len(raw))
	for i := 0; i < len(raw); {
		c := raw[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(raw):
			units = append(units, uint16(c&0x1F)<<6|uint16(raw[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(raw):
			units = append(units, uint16(c&0x0F)<<12|uint16(raw[i+1]&0x3F)<<6|uint16(raw[i+2]&0x3F))
			i += 3
		default:
			units = append(units, utf8.RuneError)
			i++
		}
	}
	var b strings.Builder
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u >= 0xD800 && u < 0xDC00 && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] < 0xE000 {
			r := (rune(u)-0xD800)<<10 | (rune(units[i+1]) - 0xDC00) + 0x10000
			b.WriteRune(r)
			i++
			continue
		}
		b.WriteRune(rune(u))
	}
	return b.String()
}
