package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/simp-lee/mailsync/internal/debounce"
	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/query"
	"github.com/simp-lee/mailsync/internal/store"
)

const defaultPageSize = 20

func (cl *cli) list(ctx context.Context, rc resourceCmd, args []string) error {
	fs := newFlagSet("list")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", defaultPageSize, "rows per page")
	search := fs.String("search", "", "search term")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	l, err := rc.list(ctx, *page, *size, *search)
	if err != nil {
		return err
	}
	return cl.render(l, true)
}

func (cl *cli) get(ctx context.Context, rc resourceCmd, args []string) error {
	fs := newFlagSet("get")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	l, err := rc.get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return cl.render(l, false)
}

func (cl *cli) delete(ctx context.Context, rc resourceCmd, args []string) error {
	fs := newFlagSet("delete")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	return bulkOutcome(rc.bulkDelete(ctx, fs.Args()))
}

// bulkOutcome turns a partial failure into an exit status; the aggregate
// notification has already been shown.
func bulkOutcome(res store.BulkResult) error {
	if res.OK() {
		return nil
	}
	return shown{fmt.Errorf("%d of %d failed", len(res.Failed), res.Total())}
}

func (cl *cli) createContact(ctx context.Context, args []string) error {
	fs := newFlagSet("create")
	var v domain.Contact
	fs.StringVar(&v.Email, "email", "", "email address")
	fs.StringVar(&v.FirstName, "first", "", "first name")
	fs.StringVar(&v.LastName, "last", "", "last name")
	fs.StringVar(&v.From, "from", "", "where the contact came from")
	unsubscribed := fs.Bool("unsubscribed", false, "create the contact unsubscribed")
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	v.IsSubscribed = !*unsubscribed

	s := cl.c.Contacts.Store
	s.SetDraft(v)
	created, err := s.Create(ctx)
	if err != nil {
		return shown{err}
	}
	_, err = fmt.Fprintln(cl.out, created.ID)
	return err
}

func (cl *cli) importContacts(ctx context.Context, args []string) error {
	fs := newFlagSet("import")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := cl.c.ImportContacts(ctx, f.Name(), f)
	if err != nil {
		return shown{err}
	}
	if cl.format == formatYAML {
		return writeYAML(cl.out, res)
	}
	if len(res.Errors) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		rows = append(rows, []string{fmt.Sprint(e.Row), e.Message})
	}
	return writeTable(cl.out, []string{"ROW", "PROBLEM"}, rows)
}

func (cl *cli) assign(ctx context.Context, args []string) error {
	fs := newFlagSet("assign")
	group := fs.String("group", "", "contact group id")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	cl.c.Contacts.Store.SetSelection(fs.Args())
	res, err := cl.c.AssignContacts(ctx, *group)
	if err != nil {
		return shown{err}
	}
	return bulkOutcome(res)
}

func (cl *cli) records(ctx context.Context, args []string) error {
	fs := newFlagSet("records")
	file := fs.String("o", "", "write the zone file here instead of listing the records")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	id := fs.Arg(0)

	if *file == "" {
		records, err := cl.c.DomainRecords(ctx, id)
		if err != nil {
			return err
		}
		if cl.format == formatYAML {
			return writeYAML(cl.out, records)
		}
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{r.Type, r.Host, r.Value})
		}
		return writeTable(cl.out, []string{"TYPE", "HOST", "VALUE"}, rows)
	}

	att, err := cl.c.DownloadRecords(ctx, id)
	if err != nil {
		return shown{err}
	}
	name := *file
	if name == "-" {
		_, err = cl.out.Write(att.Data)
		return err
	}
	if err := os.WriteFile(name, att.Data, 0o644); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cl.out, "%s written to %s\n", att.Filename, name)
	return err
}

// watch keeps the first page of a resource on screen. Each stdin line
// becomes the search term once typing pauses; the page re-renders on every
// cache update until stdin closes or ctx ends.
func (cl *cli) watch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch")
	size := fs.Int("size", defaultPageSize, "rows per page")
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	rc, ok := cl.resource(fs.Arg(0))
	if !ok {
		return usagef("unknown resource %q", fs.Arg(0))
	}
	cl.c.Start(ctx)

	var (
		mu  sync.Mutex
		sub *query.Subscription
	)
	show := func(search string) func(listing, error) {
		return func(l listing, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintln(cl.out, "error:", describe(err))
				return
			}
			fmt.Fprintf(cl.out, "-- %s %q\n", l.label+"s", search)
			_ = cl.render(l, true)
		}
	}
	mount := func(search string) {
		next := rc.watch(1, *size, search, show(search))
		mu.Lock()
		prev := sub
		sub = next
		mu.Unlock()
		if prev != nil {
			prev.Close()
		}
	}

	d := debounce.New(cl.c.Timings().DebounceDelay, "", mount)
	defer d.Stop()
	mount("")
	defer func() {
		mu.Lock()
		s := sub
		mu.Unlock()
		s.Close()
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := cl.in.ReadString('\n')
			if line != "" || err == nil {
				select {
				case lines <- strings.TrimRight(line, "\r\n"):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			d.Set(line)
		case err := <-readErr:
			if !errors.Is(err, io.EOF) {
				return err
			}
			// Print the last search at least once before exiting.
			d.Flush()
			mu.Lock()
			s := sub
			mu.Unlock()
			_, err = s.Refetch(ctx)
			return err
		}
	}
}
