package confirmation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"kabu-vault/internal/display"
)

// Service prompts the user before destructive operations
type Service interface {
	// Confirm asks a yes/no question. Empty input means no.
	Confirm(prompt string, autoApprove bool) (bool, error)
	// ConfirmDestructive requires the exact word "yes" to proceed.
	ConfirmDestructive(prompt string, autoApprove bool) (bool, error)
}

type service struct {
	printer *display.Printer
	in      io.Reader
	out     io.Writer
}

// NewService creates a confirmation service reading from stdin
func NewService(printer *display.Printer) Service {
	return &service{
		printer: printer,
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// NewServiceWithIO creates a confirmation service with explicit streams
func NewServiceWithIO(printer *display.Printer, in io.Reader, out io.Writer) Service {
	return &service{printer: printer, in: in, out: out}
}

// Confirm asks a yes/no question with interrupt handling
func (s *service) Confirm(prompt string, autoApprove bool) (bool, error) {
	if autoApprove {
		s.printer.Infof("Auto-approving: %s", prompt)
		return true, nil
	}

	input, err := s.readInput(fmt.Sprintf("%s [y/N]: ", prompt))
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ConfirmDestructive requires the literal answer "yes". Any other
// input, including "y", aborts.
func (s *service) ConfirmDestructive(prompt string, autoApprove bool) (bool, error) {
	if autoApprove {
		s.printer.Warnf("Auto-approving destructive operation: %s", prompt)
		return true, nil
	}

	input, err := s.readInput(fmt.Sprintf("%s Type 'yes' to continue: ", prompt))
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(input) == "yes", nil
}

// readInput reads a line while watching for SIGINT/SIGTERM
func (s *service) readInput(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptChan)

	inputChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(s.in)
		line, err := reader.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			errorChan <- err
			return
		}
		inputChan <- line
	}()

	select {
	case <-interruptChan:
		fmt.Fprintln(s.out)
		s.printer.Warnf("Operation cancelled by user")
		return "", fmt.Errorf("interrupted")
	case err := <-errorChan:
		return "", fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		return input, nil
	}
}
