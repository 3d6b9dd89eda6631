package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/reeflective/readline"

	"github.com/cmourglia/zlox/compiler"
	"github.com/cmourglia/zlox/vm"
)

// runREPL reads statements line by line into a persistent VM. Heap
// residents accumulate across lines until a collection drops them.
func runREPL(v *vm.VM) {
	defer v.Close()

	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return "zlox> " })
	rl.SyntaxHighlighter = highlight

	fmt.Println("zlox REPL (Ctrl-D or 'exit' to quit)")
	fmt.Println("Use print(expr); to see a value.")

	for {
		text, err := rl.Readline()
		if err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}

		line := strings.TrimSpace(text)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if !strings.HasSuffix(line, ";") {
			line += ";"
		}

		if err := v.Interpret(line); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("%v", err))
		}
	}
}

// highlight recolors one line of input using the lexer. Gaps between
// tokens (whitespace and comments) pass through untouched.
func highlight(line []rune) string {
	src := string(line)
	lex := compiler.NewLexer(src)

	var b strings.Builder
	pos := 0
	for {
		tok := lex.NextToken()
		if tok.Type == compiler.TokenEOF {
			break
		}
		if tok.Offset > pos {
			b.WriteString(src[pos:tok.Offset])
		}

		// Error lexemes carry the scan message, not source text; paint
		// the rest of the line and stop.
		if tok.Type == compiler.TokenError {
			b.WriteString(color.RedString("%s", src[tok.Offset:]))
			return b.String()
		}

		// String lexemes exclude the quotes; widen the span to cover them.
		span := tok.Lexeme
		if tok.Type == compiler.TokenString {
			span = src[tok.Offset : tok.Offset+len(tok.Lexeme)+2]
		}

		switch {
		case tok.Type == compiler.TokenString:
			b.WriteString(color.GreenString("%s", span))
		case tok.Type == compiler.TokenNumber:
			b.WriteString(color.MagentaString("%s", span))
		case compiler.IsKeyword(span):
			b.WriteString(color.BlueString("%s", span))
		default:
			b.WriteString(span)
		}
		pos = tok.Offset + len(span)
	}
	b.WriteString(src[pos:])

	return b.String()
}
