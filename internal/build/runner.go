package build

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// OutputLine is one line of subprocess output, tagged with its stream.
type OutputLine struct {
	Text   string
	Stderr bool
}

// Process is a started build tool invocation. Lines must be drained before
// Wait returns the final error.
type Process interface {
	// Lines yields interleaved stdout/stderr lines and is closed when both
	// streams are exhausted.
	Lines() <-chan OutputLine
	// Wait blocks until the process exits and reports its final status.
	Wait() error
}

// CommandRunner starts external build commands. The orchestrator consumes
// output at its own pace; nothing is buffered beyond the channel.
type CommandRunner interface {
	Start(ctx context.Context, command, dir string) (Process, error)
}

// ExecRunner runs commands via os/exec. The command string is split on
// whitespace; build tool commands are simple invocations like
// "npx quartz build" and never need shell quoting.
type ExecRunner struct{}

func (ExecRunner) Start(ctx context.Context, command, dir string) (Process, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %q: %w", fields[0], err)
	}

	p := &execProcess{cmd: cmd, lines: make(chan OutputLine, 64)}
	p.wg.Add(2)
	go p.scan(stdout, false)
	go p.scan(stderr, true)
	go func() {
		p.wg.Wait()
		close(p.lines)
	}()
	return p, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	lines chan OutputLine
	wg    sync.WaitGroup
}

func (p *execProcess) scan(r interface{ Read([]byte) (int, error) }, stderr bool) {
	defer p.wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		p.lines <- OutputLine{Text: sc.Text(), Stderr: stderr}
	}
}

func (p *execProcess) Lines() <-chan OutputLine { return p.lines }

func (p *execProcess) Wait() error { return p.cmd.Wait() }
