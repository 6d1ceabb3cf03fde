package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"

	"github.com/jwtly10/gh-relay/internal/client"
	"github.com/jwtly10/gh-relay/internal/history"
	"github.com/jwtly10/gh-relay/internal/relay"
)

// printResult pretty prints the JSON value returned by the relay
func printResult(w io.Writer, value json.RawMessage) error {
	var b bytes.Buffer
	if err := json.Indent(&b, value, "", "  "); err != nil {
		return err
	}
	b.WriteByte('\n')
	_, err := w.Write(b.Bytes())
	return err
}

func printError(w io.Writer, err error) {
	label := "error"
	var invokeErr *client.InvokeError
	if errors.As(err, &invokeErr) && invokeErr.Status != 0 {
		label = fmt.Sprintf("error %d", invokeErr.Status)
	}
	fmt.Fprintf(w, "%s %s\n", color.Red.Sprintf("✗ %s:", label), err.Error())
}

func printHistory(w io.Writer, entries []history.Entry) {
	var b strings.Builder

	b.WriteString(color.Bold.Sprint("RECENT REQUESTS (newest first)\n"))
	b.WriteString(strings.Repeat("─", 72) + "\n")

	if len(entries) == 0 {
		b.WriteString("   No requests relayed yet\n")
	}

	for _, e := range entries {
		statusSymbol := color.Green.Sprint("✓")
		switch relay.Kind(e.Outcome) {
		case relay.KindOK:
		case relay.KindUpstream, relay.KindTransport:
			statusSymbol = color.Red.Sprint("✗")
		default:
			statusSymbol = color.Yellow.Sprint("!")
		}

		detail := e.Outcome
		if e.UpstreamStatus != 0 {
			detail = fmt.Sprintf("%s %d", e.Outcome, e.UpstreamStatus)
		}

		b.WriteString(fmt.Sprintf(" %s %s %-6s %-4s %s %s %s\n",
			statusSymbol,
			e.CreatedAt.Local().Format("15:04:05"),
			e.Method,
			e.Transport,
			e.URL,
			color.Gray.Sprint(detail),
			color.Gray.Sprint((time.Duration(e.Duration) * time.Millisecond).String()),
		))
	}

	fmt.Fprint(w, b.String())
}
