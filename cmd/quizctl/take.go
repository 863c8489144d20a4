package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stemsi/quizdesk/internal/client"
	"github.com/stemsi/quizdesk/internal/exam"
)

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take the exam in the terminal",
		Long: "Answer with a-d (or 1-4). Other commands:\n" +
			"  n / p   next / previous question\n" +
			"  g N     go to question N\n" +
			"  l       list answered questions\n" +
			"  s       submit\n" +
			"  q       quit without recording a result",
		RunE: runTake,
	}
	cmd.Flags().StringP("name", "n", "", "student name (prompted when empty)")
	return cmd
}

// takeSession is the terminal front end for one attempt.
type takeSession struct {
	engine    *exam.Engine
	questions []exam.AttemptQuestion
	cur       int
	out       io.Writer
	warned    map[int]bool
	interval  time.Duration
}

func newTakeSession(engine *exam.Engine, questions []exam.AttemptQuestion, out io.Writer) *takeSession {
	return &takeSession{
		engine:    engine,
		questions: questions,
		out:       out,
		warned:    map[int]bool{},
		interval:  time.Second,
	}
}

func runTake(cmd *cobra.Command, _ []string) error {
	c, v, log := newClient(cmd)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	lines := readLines(cmd.InOrStdin())

	bank, err := c.ListQuestions(ctx)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	settings, err := c.ExamSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if len(bank) == 0 {
		return errors.New("the question bank is empty; ask your teacher to add questions")
	}

	name := strings.TrimSpace(v.GetString("name"))
	for name == "" {
		fmt.Fprint(out, "Your name: ")
		line, ok := <-lines
		if !ok {
			return errors.New("no name given")
		}
		name = strings.TrimSpace(line)
	}

	engine := exam.NewEngine(c, exam.WithLogger(log))
	questions, err := engine.Start(bank, name, settings)
	if err != nil {
		return err
	}

	t := newTakeSession(engine, questions, out)
	t.banner(settings.ExamTitle, settings.TimeLimitMinutes, name)
	t.show()
	t.run(ctx, lines)
	return nil
}

// run drives the attempt until it is submitted, discarded or interrupted.
func (t *takeSession) run(ctx context.Context, lines <-chan string) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Countdown ticks may be dropped when the reader is busy. The timeout
	// outcome has its own channel and is always delivered.
	ticks := make(chan tickResult, 1)
	final := make(chan tickResult, 1)
	go t.engine.Run(runCtx, t.interval, func(ev exam.TickEvent, err error) {
		tr := tickResult{ev: ev, err: err}
		if ev.AutoSubmitted || err != nil {
			select {
			case final <- tr:
			case <-runCtx.Done():
			}
			return
		}
		if ev.Remaining >= 0 {
			select {
			case ticks <- tr:
			default:
			}
		}
	})

	for {
		select {
		case <-ctx.Done():
			_ = t.engine.Quit()
			fmt.Fprintln(t.out, "\nInterrupted. No result was recorded.")
			return

		case tr := <-final:
			if done := t.onTick(tr); done {
				return
			}

		case tr := <-ticks:
			t.onTick(tr)

		case line, ok := <-lines:
			if !ok {
				_ = t.engine.Quit()
				return
			}
			if done := t.handle(ctx, strings.TrimSpace(line)); done {
				return
			}
		}
	}
}

type tickResult struct {
	ev  exam.TickEvent
	err error
}

func (t *takeSession) onTick(tr tickResult) bool {
	if tr.err != nil {
		fmt.Fprintf(t.out, "\nTime is up, but the submission failed: %v\n", tr.err)
		fmt.Fprintln(t.out, "Type 's' to try again or 'q' to quit.")
		return false
	}
	if tr.ev.AutoSubmitted && tr.ev.Summary != nil {
		fmt.Fprintln(t.out, "\nTime is up. Your answers were submitted automatically.")
		printSummary(t.out, tr.ev.Summary)
		return true
	}

	rem := tr.ev.Remaining
	for _, mark := range []int{300, 60, 10} {
		if rem <= mark && rem > mark-5 && !t.warned[mark] {
			t.warned[mark] = true
			fmt.Fprintf(t.out, "\n[%s remaining]\n> ", formatClock(rem))
		}
	}
	return false
}

// handle applies one input line and reports whether the attempt is over.
func (t *takeSession) handle(ctx context.Context, line string) bool {
	if line == "" {
		t.show()
		return false
	}
	cmd := strings.ToLower(line)

	switch {
	case cmd == "n":
		if t.cur < len(t.questions)-1 {
			t.cur++
		}
		t.show()
	case cmd == "p":
		if t.cur > 0 {
			t.cur--
		}
		t.show()
	case strings.HasPrefix(cmd, "g "):
		var n int
		if _, err := fmt.Sscanf(cmd, "g %d", &n); err != nil || n < 1 || n > len(t.questions) {
			fmt.Fprintf(t.out, "Pick a question between 1 and %d.\n> ", len(t.questions))
			return false
		}
		t.cur = n - 1
		t.show()
	case cmd == "l":
		t.list()
	case cmd == "s":
		return t.submit(ctx)
	case cmd == "q":
		if err := t.engine.Quit(); err != nil {
			fmt.Fprintf(t.out, "Cannot quit now: %v\n> ", err)
			return false
		}
		fmt.Fprintln(t.out, "Exam discarded. No result was recorded.")
		return true
	default:
		idx, ok := parseChoice(cmd, len(t.questions[t.cur].Choices))
		if !ok {
			fmt.Fprintln(t.out, "Unknown command. Use a-d, n, p, g N, l, s or q.")
			fmt.Fprint(t.out, "> ")
			return false
		}
		if err := t.engine.Answer(t.questions[t.cur].Key(), idx); err != nil {
			if errors.Is(err, exam.ErrTimeExpired) {
				fmt.Fprintln(t.out, "Time is up. Type 's' to submit.")
			} else {
				fmt.Fprintf(t.out, "Answer not recorded: %v\n", err)
			}
			fmt.Fprint(t.out, "> ")
			return false
		}
		if t.cur < len(t.questions)-1 {
			t.cur++
		}
		t.show()
	}
	return false
}

func (t *takeSession) submit(ctx context.Context) bool {
	answered := len(t.engine.Answers())
	if answered < len(t.questions) {
		fmt.Fprintf(t.out, "%d of %d questions unanswered.\n", len(t.questions)-answered, len(t.questions))
	}
	fmt.Fprintln(t.out, "Submitting...")

	sum, err := t.engine.Submit(ctx)
	switch {
	case err == nil:
		printSummary(t.out, sum)
		return true
	case errors.Is(err, exam.ErrAlreadySubmitted):
		if s := t.engine.Summary(); s != nil {
			printSummary(t.out, s)
		}
		return true
	case errors.Is(err, exam.ErrSubmitInProgress):
		fmt.Fprintln(t.out, "A submission is already in progress.")
	case client.IsTransport(err):
		fmt.Fprintf(t.out, "Could not reach the server: %v\nYour answers are kept. Type 's' to try again.\n", err)
	default:
		fmt.Fprintf(t.out, "Submission failed: %v\nType 's' to try again.\n", err)
	}
	fmt.Fprint(t.out, "> ")
	return false
}

// ─── Rendering ──────────────────────────────────────────────────────

func (t *takeSession) banner(title string, minutes int, name string) {
	if title == "" {
		title = "Quiz"
	}
	fmt.Fprintf(t.out, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
	fmt.Fprintf(t.out, "Student: %s\nQuestions: %d\n", name, len(t.questions))
	if minutes > 0 {
		fmt.Fprintf(t.out, "Time limit: %d min\n", minutes)
	} else {
		fmt.Fprintln(t.out, "Time limit: none")
	}
	fmt.Fprintln(t.out, "Answer with a-d. n/p to move, s to submit, q to quit.")
}

func (t *takeSession) show() {
	q := t.questions[t.cur]
	answers := t.engine.Answers()
	chosen, hasAnswer := -1, false
	if a, ok := answers[q.Key()]; ok {
		chosen, hasAnswer = a.Int()
	}

	header := fmt.Sprintf("Question %d/%d", t.cur+1, len(t.questions))
	if limit := exam.LimitSeconds(t.engine.Settings().TimeLimitMinutes); limit > 0 {
		rem := max(limit-t.engine.Elapsed(), 0)
		header += "  [" + formatClock(rem) + " left]"
	}
	fmt.Fprintf(t.out, "\n%s\n%s\n", header, q.Text)
	for i, ch := range q.Choices {
		mark := " "
		if hasAnswer && chosen == i {
			mark = ">"
		}
		fmt.Fprintf(t.out, " %s %c) %s\n", mark, 'a'+i, ch)
	}
	fmt.Fprint(t.out, "> ")
}

func (t *takeSession) list() {
	answers := t.engine.Answers()
	for i, q := range t.questions {
		status := "-"
		if a, ok := answers[q.Key()]; ok {
			if n, ok := a.Int(); ok {
				status = string(rune('a' + n))
			}
		}
		fmt.Fprintf(t.out, "%3d [%s] %s\n", i+1, status, truncate(q.Text, 60))
	}
	fmt.Fprintf(t.out, "%d/%d answered\n> ", len(answers), len(t.questions))
}

func printSummary(w io.Writer, s *exam.Summary) {
	verdict := "FAILED"
	if s.Passed {
		verdict = "PASSED"
	}
	fmt.Fprintf(w, "\n%s, you scored %d/%d (%d%%).\n", s.StudentName, s.Score, s.Total, s.Percent)
	fmt.Fprintf(w, "Passing threshold: %d%%. Result: %s\n", s.PassingThreshold, verdict)
	fmt.Fprintf(w, "Time spent: %s\n", formatClock(s.TimeSpent))
}

// ─── Helpers ────────────────────────────────────────────────────────

// readLines feeds stdin lines into a channel that closes on EOF.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

// parseChoice accepts a letter (a, b, ...) or a 1-based number.
func parseChoice(s string, n int) (int, bool) {
	if len(s) != 1 {
		return 0, false
	}
	var idx int
	switch b := s[0]; {
	case b >= 'a' && b <= 'z':
		idx = int(b - 'a')
	case b >= '1' && b <= '9':
		idx = int(b - '1')
	default:
		return 0, false
	}
	return idx, idx < n
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
