package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/session"
	"github.com/alexanderramin/procflow/internal/workflow"
)

const watchEditHelp = "commands: complete STEP [DOC] | revert STEP | check STEP ITEM | uncheck STEP ITEM | postit STEP TEXT | quit"

var errQuitWatch = errors.New("quit")

// parseWatchEdit turns one line typed during project watch into a session
// intent. Blank lines yield a nil intent.
func parseWatchEdit(line string) (session.Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "quit", "exit", "q":
		return nil, errQuitWatch
	case "complete", "revert":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: %s STEP", verb)
		}
		step, err := parseIndex("step", args[0])
		if err != nil {
			return nil, err
		}
		if verb == "revert" {
			return func(p *domain.Project, now time.Time) error {
				return workflow.RevertStep(p, step, now)
			}, nil
		}
		var doc *string
		if len(args) > 1 {
			d := strings.Join(args[1:], " ")
			doc = &d
		}
		return func(p *domain.Project, now time.Time) error {
			return workflow.CompleteStep(p, step, doc, nil, now)
		}, nil
	case "check", "uncheck":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: %s STEP ITEM", verb)
		}
		step, err := parseIndex("step", args[0])
		if err != nil {
			return nil, err
		}
		item, err := parseIndex("item", args[1])
		if err != nil {
			return nil, err
		}
		checked := verb == "check"
		return func(p *domain.Project, now time.Time) error {
			return workflow.SetItemChecked(p, step, item, checked, now)
		}, nil
	case "postit":
		if len(args) < 2 {
			return nil, fmt.Errorf("usage: postit STEP TEXT")
		}
		step, err := parseIndex("step", args[0])
		if err != nil {
			return nil, err
		}
		text := strings.Join(args[1:], " ")
		return func(p *domain.Project, now time.Time) error {
			_, err := workflow.AddPostit(p, step, text, now)
			return err
		}, nil
	}
	return nil, fmt.Errorf("unknown command %q; %s", verb, watchEditHelp)
}

// readLines sends each line of r on the returned channel and closes it at
// EOF or when ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// applyWatchEdit runs one typed line against the session and reports the
// outcome on out. It returns errQuitWatch when the user asked to leave.
func applyWatchEdit(ctx context.Context, sess *session.Session, out io.Writer, line string) error {
	intent, err := parseWatchEdit(line)
	if errors.Is(err, errQuitWatch) {
		return err
	}
	if err != nil {
		fmt.Fprintf(out, "! %v\n", err)
		return nil
	}
	if intent == nil {
		return nil
	}
	err = sess.Apply(ctx, intent)
	switch {
	case errors.Is(err, domain.ErrStaleRevision):
		fmt.Fprintln(out, "! project changed elsewhere; reloaded, try again")
	case err != nil:
		fmt.Fprintf(out, "! %v\n", err)
	}
	return nil
}
