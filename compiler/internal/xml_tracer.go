package internal

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// XMLTracer mirrors the parse as an indented xml document: one element per non-terminal
// and one leaf per consumed token. A nil *XMLTracer traces nothing.
type XMLTracer struct {
	output *bufio.Writer
	depth  int
}

func NewXMLTracer(w io.Writer) *XMLTracer {
	return &XMLTracer{output: bufio.NewWriter(w)}
}

func (tracer *XMLTracer) indent() {
	tracer.output.WriteString(strings.Repeat("  ", tracer.depth))
}

func (tracer *XMLTracer) open(tag string) {
	if tracer == nil {
		return
	}
	tracer.indent()
	fmt.Fprintf(tracer.output, "<%s>\n", tag)
	tracer.depth++
}

func (tracer *XMLTracer) close(tag string) {
	if tracer == nil {
		return
	}
	tracer.depth--
	tracer.indent()
	fmt.Fprintf(tracer.output, "</%s>\n", tag)
}

func (tracer *XMLTracer) token(t *Token) {
	if tracer == nil || t.tp == EOFTP {
		return
	}
	tracer.indent()
	fmt.Fprintf(tracer.output, "<%s> ", t.tp)
	// EscapeText only fails when the writer does; bufio keeps that error for Flush.
	_ = xml.EscapeText(tracer.output, []byte(t.content))
	fmt.Fprintf(tracer.output, " </%s>\n", t.tp)
}

func (tracer *XMLTracer) Flush() error {
	if tracer == nil {
		return nil
	}
	if err := tracer.output.Flush(); err != nil {
		return fmt.Errorf("write parse trace: %w", err)
	}
	return nil
}
