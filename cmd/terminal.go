package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bdlandchain/landchain-cli/internal/adapters/agent/keystore"
	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"
)

// terminalPrompter asks for approvals on the controlling terminal. Passphrases are read
// without echo when stdin is a terminal.
type terminalPrompter struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

var _ keystore.Prompter = (*terminalPrompter)(nil)

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	p := &terminalPrompter{in: bufio.NewReader(in), out: out, fd: -1}
	if file, ok := in.(*os.File); ok {
		p.fd = int(file.Fd())
		p.isTerm = term.IsTerminal(p.fd)
	}
	return p
}

func (p *terminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.out, "%s [y/N]: ", question); err != nil {
		return false, err
	}
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *terminalPrompter) Passphrase(ctx context.Context, account common.Address) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.secret(fmt.Sprintf("Passphrase for %s: ", account.Hex()))
}

func (p *terminalPrompter) secret(label string) (string, error) {
	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", err
	}

	if p.isTerm {
		raw, err := term.ReadPassword(p.fd)
		_, _ = fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(raw), nil
	}

	return p.readLine()
}

func (p *terminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// toastPrinter streams notifications to w as they are pushed. While held, lines are
// buffered so they do not tear an active spinner.
type toastPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	holding bool
	held    []string
}

func (p *toastPrinter) print(toast domain.Toast) {
	line := fmt.Sprintf("[%s] %s", toast.Kind, toast.Title)
	if body := strings.TrimSpace(toast.Body); body != "" {
		line += ": " + body
	}
	if toast.RelatedTxHash != nil {
		line += " (" + toast.RelatedTxHash.Hex() + ")"
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.holding {
		p.held = append(p.held, line)
		return
	}
	_, _ = fmt.Fprintln(p.w, line)
}

func (p *toastPrinter) hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holding = true
}

func (p *toastPrinter) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, line := range p.held {
		_, _ = fmt.Fprintln(p.w, line)
	}
	p.held = nil
	p.holding = false
}
