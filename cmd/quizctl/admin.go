package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/service"
	"golang.org/x/term"
)

// ─── Questions ──────────────────────────────────────────────────────

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import questions from a spreadsheet",
		Long: "Column A holds the question, B-E up to four choices and F the\n" +
			"1-based number of the correct choice. Rejected rows are listed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, v, _ := newClient(cmd)
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rep, err := c.ImportQuestions(cmd.Context(), filepath.Base(args[0]), f, v.GetBool("skip-header"))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d, skipped %d blank, rejected %d.\n", rep.Imported, rep.Skipped, len(rep.Errors))
			for _, e := range rep.Errors {
				fmt.Fprintf(out, "  row %d: %s\n", e.Row, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().Bool("skip-header", false, "ignore the first row")
	return cmd
}

func questionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Inspect or clear the question bank",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the question bank",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, _ := newClient(cmd)
			qs, err := c.ListQuestions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, q := range qs {
				fmt.Fprintf(out, "#%d %s\n", q.ID, q.Text)
				for i, ch := range q.Choices {
					mark := " "
					if q.Correct == model.NewChoiceIndex(i) {
						mark = "*"
					}
					fmt.Fprintf(out, "   %s %c) %s\n", mark, 'A'+i, ch)
				}
			}
			fmt.Fprintf(out, "%d questions\n", len(qs))
			return nil
		},
	}

	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Delete every question",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, v, _ := newClient(cmd)
			if !v.GetBool("yes") && !confirm(cmd, "Delete ALL questions? This cannot be undone.") {
				return errors.New("aborted")
			}
			n, err := c.ClearQuestions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d questions.\n", n)
			return nil
		},
	}
	clearAll.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(list, clearAll)
	return cmd
}

// ─── Results ────────────────────────────────────────────────────────

func resultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List, delete or clear recorded results",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List results, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, _ := newClient(cmd)
			results, err := c.ListResults(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSCORE\tPERCENT\tTIME\tSUBMITTED")
			for _, r := range results {
				spent := "N/A"
				if r.TimeSpent != nil {
					spent = (time.Duration(*r.TimeSpent) * time.Second).String()
				}
				submitted := "N/A"
				if r.SubmitTime != nil {
					submitted = r.SubmitTime.Local().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%d%%\t%s\t%s\n", r.ID, r.StudentName, r.Score, r.Total, r.Percent, spent, submitted)
			}
			return tw.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			c, _, _ := newClient(cmd)
			if err := c.DeleteResult(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted result %d.\n", id)
			return nil
		},
	}

	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Delete every result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, v, _ := newClient(cmd)
			if !v.GetBool("yes") && !confirm(cmd, "Delete ALL results? This cannot be undone.") {
				return errors.New("aborted")
			}
			n, err := c.ClearResults(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d results.\n", n)
			return nil
		},
	}
	clearAll.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(list, del, clearAll)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download results as an xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, v, _ := newClient(cmd)
			path := v.GetString("output")

			var w io.Writer = cmd.OutOrStdout()
			if path != "-" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := c.ExportResults(cmd.Context(), w)
			if err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes).\n", path, n)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "results_export.xlsx", "output file (- for stdout)")
	return cmd
}

// ─── Settings ───────────────────────────────────────────────────────

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change exam settings",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, _ := newClient(cmd)
			ctx := cmd.Context()
			minutes, err := c.TimeLimit(ctx)
			if err != nil {
				return err
			}
			threshold, err := c.PassingThreshold(ctx)
			if err != nil {
				return err
			}
			title, err := c.ExamTitle(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exam title:        %s\n", title)
			if minutes == nil || *minutes == 0 {
				fmt.Fprintln(out, "Time limit:        unlimited")
			} else {
				fmt.Fprintf(out, "Time limit:        %d min\n", *minutes)
			}
			if threshold == nil {
				fmt.Fprintf(out, "Passing threshold: %d%% (default)\n", model.DefaultPassingThreshold)
			} else {
				fmt.Fprintf(out, "Passing threshold: %d%%\n", *threshold)
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, _ := newClient(cmd)
			ctx := cmd.Context()
			f := cmd.Flags()
			out := cmd.OutOrStdout()
			changed := false

			if f.Changed("time-limit") {
				m, _ := f.GetFloat64("time-limit")
				stored, err := c.SetTimeLimit(ctx, m)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Time limit set to %d min.\n", stored)
				changed = true
			}
			if f.Changed("passing-threshold") {
				p, _ := f.GetFloat64("passing-threshold")
				stored, err := c.SetPassingThreshold(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Passing threshold set to %d%%.\n", stored)
				changed = true
			}
			if f.Changed("title") {
				t, _ := f.GetString("title")
				stored, err := c.SetExamTitle(ctx, t)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Exam title set to %q.\n", stored)
				changed = true
			}
			if !changed {
				return errors.New("nothing to change: pass --time-limit, --passing-threshold or --title")
			}
			return nil
		},
	}
	sf := set.Flags()
	sf.Float64("time-limit", 0, "time limit in minutes (0 = unlimited)")
	sf.Float64("passing-threshold", float64(model.DefaultPassingThreshold), "passing threshold percent (0-100)")
	sf.String("title", "", "exam title")

	cmd.AddCommand(get, set)
	return cmd
}

// ─── PIN Gate ───────────────────────────────────────────────────────

func unlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Exchange the teacher PIN for a token",
		Long:  "Prints a token to export as QUIZCTL_TOKEN when the server runs with ADMIN_GATE=true.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, _ := newClient(cmd)
			pin, err := readSecret(cmd, "Teacher PIN: ")
			if err != nil {
				return err
			}
			token, expiresAt, err := c.Unlock(cmd.Context(), pin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Unlocked until %s.\n", expiresAt.Local().Format(time.DateTime))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func hashPINCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-pin",
		Short: "Print a bcrypt hash of a PIN for TEACHER_PIN",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pin, err := readSecret(cmd, "New PIN: ")
			if err != nil {
				return err
			}
			again, err := readSecret(cmd, "Repeat PIN: ")
			if err != nil {
				return err
			}
			if pin != again {
				return errors.New("PINs do not match")
			}
			hash, err := service.HashPIN(pin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// ─── Prompts ────────────────────────────────────────────────────────

var stdinReader *bufio.Reader

// stdin buffers the command input once so consecutive prompts do not lose lines.
func stdin(cmd *cobra.Command) *bufio.Reader {
	if stdinReader == nil {
		stdinReader = bufio.NewReader(cmd.InOrStdin())
	}
	return stdinReader
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := stdin(cmd).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	line, _ := stdin(cmd).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
