package wizard

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CodeLength длина кода подтверждения.
const CodeLength = 6

// CodeInput поле ввода кода по одной ячейке на символ. Принимает только
// буквы и цифры, буквы приводит к верхнему регистру.
type CodeInput struct {
	cells [CodeLength]rune
	focus int
}

// Focus индекс активной ячейки.
func (c *CodeInput) Focus() int {
	return c.focus
}

// Set записывает символ в ячейку i и переводит фокус на следующую.
// Возвращает false для недопустимого символа или индекса.
func (c *CodeInput) Set(i int, ch rune) bool {
	if i < 0 || i >= CodeLength || !isCodeRune(ch) {
		return false
	}
	c.cells[i] = unicode.ToUpper(ch)
	c.focus = min(i+1, CodeLength-1)
	return true
}

// Type записывает символ в активную ячейку.
func (c *CodeInput) Type(ch rune) bool {
	return c.Set(c.focus, ch)
}

// Backspace очищает активную ячейку, а если она пуста, переходит
// на предыдущую и очищает её.
func (c *CodeInput) Backspace() {
	if c.cells[c.focus] != 0 {
		c.cells[c.focus] = 0
		return
	}
	if c.focus > 0 {
		c.focus--
		c.cells[c.focus] = 0
	}
}

// MoveLeft сдвигает фокус влево.
func (c *CodeInput) MoveLeft() {
	if c.focus > 0 {
		c.focus--
	}
}

// MoveRight сдвигает фокус вправо.
func (c *CodeInput) MoveRight() {
	if c.focus < CodeLength-1 {
		c.focus++
	}
}

// Paste раскладывает буквы и цифры из s по ячейкам начиная с активной.
// Прочие символы пропускаются, лишние отбрасываются.
func (c *CodeInput) Paste(s string) {
	i := c.focus
	for _, ch := range s {
		if i >= CodeLength {
			break
		}
		if !isCodeRune(ch) {
			continue
		}
		c.cells[i] = unicode.ToUpper(ch)
		i++
	}
	c.focus = min(i, CodeLength-1)
}

// Value заполненные ячейки подряд.
func (c *CodeInput) Value() string {
	var b strings.Builder
	for _, ch := range c.cells {
		if ch != 0 {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// Complete сообщает, что заполнены все ячейки.
func (c *CodeInput) Complete() bool {
	for _, ch := range c.cells {
		if ch == 0 {
			return false
		}
	}
	return true
}

// Clear очищает ячейки и возвращает фокус на первую.
func (c *CodeInput) Clear() {
	c.cells = [CodeLength]rune{}
	c.focus = 0
}

func isCodeRune(ch rune) bool {
	return ch < unicode.MaxASCII && (unicode.IsLetter(ch) || unicode.IsDigit(ch))
}

// normalizeCode приводит введённый целиком код к верхнему регистру.
// ok ложно, если длина не CodeLength или есть символ вне [A-Z0-9].
func normalizeCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if utf8.RuneCountInString(code) != CodeLength {
		return "", false
	}
	for _, ch := range code {
		if !isCodeRune(ch) {
			return "", false
		}
	}
	return code, true
}
