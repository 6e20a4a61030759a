// Package html normalises HTML guideline pages. Scripts, styles and markup
// are removed and entities decoded; block elements become line breaks.
package html
