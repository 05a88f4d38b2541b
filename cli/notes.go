package cli

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	actx "github.com/quantaphp/http-endpoint/app/context"
	aerrors "github.com/quantaphp/http-endpoint/app/errors"
	"github.com/quantaphp/http-endpoint/web/client"
)

// The Notes command manages notes on a running server.
type Notes struct {
	Address string `help:"[host]:port of the server. Defaults to the configured address."`
	Key     string `default:"data" help:"Response envelope key the server places results under."`

	Ls struct {
		Query string `short:"q" help:"Only list notes whose title contains this text."`
		Limit int    `help:"Maximum number of notes to list."`
	} `kong:"cmd,help='List notes.'"`
	Add struct {
		Title string `arg:"" help:"The unique title of the note."`
		Body  string `arg:"" optional:"" help:"The note contents."`
	} `kong:"cmd,help='Add a new note.'"`
	Show struct {
		ID string `arg:"" help:"The note ID."`
	} `kong:"cmd,help='Show the contents of a note.'"`
	Rm struct {
		ID string `arg:"" help:"The note ID."`
	} `kong:"cmd,help='Remove a note.'"`
}

// Run the notes command.
func (c *Notes) Run(kctx *kong.Context, appCtx *actx.Context) error {
	cl := client.New(c.Address, appCtx.Logger, client.WithKey(c.Key))
	ctx := appCtx.Ctx

	switch kctx.Selected().Name {
	case "ls":
		notes, err := cl.Notes(ctx, c.Ls.Query, c.Ls.Limit)
		if err != nil {
			return aerrors.NewWithCause("failed listing notes", err, "address", c.Address)
		}

		data := make([][]string, len(notes))
		for i, n := range notes {
			data[i] = []string{n.ID, n.Title, n.UpdatedAt.Local().Format(time.DateTime)}
		}

		if len(data) > 0 {
			if err = renderTable([]string{"ID", "Title", "Updated"}, data, appCtx.Stdout); err != nil {
				return fmt.Errorf("failed rendering notes: %w", err)
			}
		}
	case "add":
		n, err := cl.CreateNote(ctx, c.Add.Title, c.Add.Body)
		if err != nil {
			return aerrors.NewWithCause("failed adding note", err, "title", c.Add.Title)
		}
		fmt.Fprintln(appCtx.Stdout, n.ID)
	case "show":
		body, err := cl.NoteBody(ctx, c.Show.ID)
		if err != nil {
			return aerrors.NewWithCause("failed reading note", err, "id", c.Show.ID)
		}
		fmt.Fprintln(appCtx.Stdout, body)
	case "rm":
		deleted, err := cl.DeleteNote(ctx, c.Rm.ID)
		if err != nil {
			return aerrors.NewWithCause("failed removing note", err, "id", c.Rm.ID)
		}
		if !deleted {
			return aerrors.New("note doesn't exist", "id", c.Rm.ID)
		}
	}

	return nil
}
