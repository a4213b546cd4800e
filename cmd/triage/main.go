package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/postahr/triage/internal/config"
	"github.com/postahr/triage/internal/filter"
	"github.com/postahr/triage/internal/mail"
	"github.com/postahr/triage/internal/selection"
	"github.com/postahr/triage/internal/services"
	"github.com/postahr/triage/internal/store"
	"github.com/postahr/triage/internal/version"
)

func main() {
	configPathFlag := flag.String("config", "", "Path to JSON configuration file (default: ~/.config/triage/config.json)")
	dbFlag := flag.String("db", "", "Path to the message database (overrides config)")
	seedFlag := flag.Bool("seed-demo", false, "Seed a small demo mailbox when the database is empty")
	versionFlag := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	configPath := getConfigPath(*configPathFlag)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		cfg = config.DefaultConfig()
	}
	if *dbFlag != "" {
		cfg.Database = *dbFlag
	}

	logger := newLogger(cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("open message database: %v", err)
	}
	defer st.Close()

	if *seedFlag {
		if err := seedDemo(ctx, st); err != nil {
			log.Fatalf("seed demo mailbox: %v", err)
		}
	}

	presets, err := config.LoadSnoozePresets(cfg.SnoozePresets)
	if err != nil {
		log.Printf("Warning: %v, using built-in snooze presets", err)
		presets = config.BuiltinSnoozePresets()
	}

	app := newApp(cfg, st, presets, logger)

	// Pick up keybinding edits without a restart
	if configPath != "" {
		if w, err := config.WatchConfig(configPath, app.setConfig); err == nil {
			defer w.Close()
		}
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		log.Fatal("triage needs an interactive terminal")
	}
	if err := app.run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("triage: %v", err)
	}
}

func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("TRIAGE_CONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := home + "/.config/triage/config.json"
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func newLogger(logFile string) *log.Logger {
	if logFile == "" {
		return nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		log.Printf("Warning: could not open log file: %v", err)
		return nil
	}
	return log.New(f, "", log.LstdFlags)
}

// consoleNotifier prints engine notifications; the injected Notifier replaces
// any ambient toast mechanism.
type consoleNotifier struct{}

func (consoleNotifier) ShowSuccess(_ context.Context, msg string) { fmt.Printf("✅ %s\r\n", msg) }
func (consoleNotifier) ShowError(_ context.Context, msg string)   { fmt.Printf("❌ %s\r\n", msg) }
func (consoleNotifier) ShowInfo(_ context.Context, msg string)    { fmt.Printf("ℹ️  %s\r\n", msg) }

// app holds the wired engine plus the current list snapshot
type app struct {
	mu       sync.Mutex
	cfg      *config.Config
	store    *store.Store
	logger   *log.Logger
	notifier services.Notifier
	sel      *selection.Set
	bulk     *services.BulkServiceImpl
	snooze   *services.SnoozeServiceImpl

	category mail.Category
	filt     filter.Descriptor
	list     []mail.Message
	stale    bool
}

func newApp(cfg *config.Config, st *store.Store, presets []config.SnoozePreset, logger *log.Logger) *app {
	a := &app{
		cfg:      cfg,
		store:    st,
		logger:   logger,
		notifier: consoleNotifier{},
		sel:      selection.NewSet(),
		category: mail.CategoryInbox,
		filt:     filter.Default(),
	}
	a.snooze = services.NewSnoozeService(st, a.notifier, services.RealClock{})
	a.snooze.SetPresets(presets)
	a.bulk = services.NewBulkService(st, a.notifier, a, a.sel)
	if logger != nil {
		a.bulk.SetLogger(logger)
		a.snooze.SetLogger(logger)
	}
	return a
}

func (a *app) setConfig(cfg *config.Config) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
}

// RequestRefresh implements services.Refresher; the list is re-fetched on the
// next draw rather than mid-keystroke.
func (a *app) RequestRefresh() {
	a.mu.Lock()
	a.stale = true
	a.mu.Unlock()
}

func (a *app) refresh(ctx context.Context) error {
	if woken, err := a.store.WakeDue(ctx, time.Now()); err == nil && len(woken) > 0 {
		a.notifier.ShowInfo(ctx, fmt.Sprintf("%d snoozed messages woke up", len(woken)))
	}

	q := filter.Compose(a.filt, a.category)
	msgs, err := a.store.Search(ctx, q)
	if err != nil {
		return fmt.Errorf("search messages: %w", err)
	}
	a.mu.Lock()
	a.list = msgs
	a.stale = false
	a.mu.Unlock()

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	a.sel.OnListChanged(ids)
	return nil
}

func (a *app) draw() {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Printf("\r\n── %s (%d messages, %d selected, %d active filters) ──\r\n",
		a.category, len(a.list), a.sel.Count(), filter.ActiveCount(a.filt))
	for i, m := range a.list {
		mark := " "
		if a.sel.Contains(m.ID) {
			mark = "*"
		}
		flag := " "
		if m.Flags.Unread {
			flag = "●"
		}
		fmt.Printf("%s%2d %s %-24.24s %-44.44s\r\n", mark, i+1, flag, m.From, m.Subject)
	}
	fmt.Printf("[1-9] select  [*] all  [c] clear  [A]rchive [D]elete [R]ead sel.  [t]riage  [g]o to category  [q]uit\r\n")
}

func (a *app) run(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(fd, old)

	if err := a.refresh(ctx); err != nil {
		return err
	}

	buf := make([]byte, 1)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.mu.Lock()
		stale := a.stale
		a.mu.Unlock()
		if stale {
			if err := a.refresh(ctx); err != nil {
				return err
			}
		}
		a.draw()

		if _, err := os.Stdin.Read(buf); err != nil {
			return err
		}
		key := rune(buf[0])

		switch {
		case key == 'q' || key == 3: // q or Ctrl-C
			return nil
		case key >= '1' && key <= '9':
			a.toggleIndex(int(key - '1'))
		case key == '*':
			a.sel.SelectAll()
		case key == 'c':
			a.sel.Clear()
		case key == 'A':
			a.bulk.ApplyToSelection(ctx, mail.ActionArchive, "")
		case key == 'D':
			a.bulk.ApplyToSelection(ctx, mail.ActionTrash, "")
		case key == 'R':
			a.bulk.ApplyToSelection(ctx, mail.ActionMarkRead, "")
		case key == 'g':
			a.cycleCategory()
			if err := a.refresh(ctx); err != nil {
				return err
			}
		case key == 't':
			if err := a.runTriage(ctx); err != nil {
				return err
			}
			if err := a.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *app) toggleIndex(i int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i >= 0 && i < len(a.list) {
		a.sel.Toggle(a.list[i].ID)
	}
}

func (a *app) cycleCategory() {
	order := []mail.Category{mail.CategoryInbox, mail.CategoryStarred, mail.CategoryUrgent, mail.CategoryTrash}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, c := range order {
		if c == a.category {
			a.category = order[(i+1)%len(order)]
			return
		}
	}
	a.category = mail.CategoryInbox
}

// runTriage walks the current list one message at a time
func (a *app) runTriage(ctx context.Context) error {
	a.mu.Lock()
	cfg := a.cfg
	ids := make([]string, len(a.list))
	byID := make(map[string]mail.Message, len(a.list))
	for i, m := range a.list {
		ids[i] = m.ID
		byID[m.ID] = m
	}
	a.mu.Unlock()

	if len(ids) == 0 {
		a.notifier.ShowInfo(ctx, "Nothing to triage")
		return nil
	}

	queue := services.NewTriageQueue(ctx, ids, a.store, a.notifier, services.TriageOptions{
		AdvanceDelay: time.Duration(cfg.Triage.AdvanceDelayMs) * time.Millisecond,
		SnoozeWake:   a.snooze.DefaultWake,
		Keys:         keymap(cfg.Keys),
		Logger:       a.logger,
	})
	defer queue.Drain(ctx)

	quit := firstRune(cfg.Keys.Quit)
	buf := make([]byte, 1)
	for {
		id, ok := queue.Current()
		if !ok {
			return nil
		}
		m := byID[id]
		fmt.Printf("\r\n[%d/%d] %s — %s\r\n%s\r\n", queue.Cursor()+1, queue.Len(), m.From, m.Subject, m.Snippet)
		fmt.Printf("(%s)rchive (%s)elete (%s)tar (%s)ead (%s)nooze s(%s)ip (%s)uit\r\n",
			cfg.Keys.Archive, cfg.Keys.Trash, cfg.Keys.Star, cfg.Keys.MarkRead, cfg.Keys.Snooze, cfg.Keys.Skip, cfg.Keys.Quit)

		if _, err := os.Stdin.Read(buf); err != nil {
			return err
		}
		key := rune(buf[0])
		if key == quit || key == 3 {
			queue.Abandon()
			return nil
		}
		if err := queue.HandleKey(key); err != nil {
			a.notifier.ShowError(ctx, err.Error())
			continue
		}
		// Let the presentation delay elapse before showing the next message
		for queue.State() == services.TriageCommitting {
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func keymap(k config.KeyBindings) map[rune]mail.Action {
	m := map[rune]mail.Action{}
	bind := func(s string, a mail.Action) {
		if r := firstRune(s); r != 0 {
			m[r] = a
		}
	}
	bind(k.Archive, mail.ActionArchive)
	bind(k.Trash, mail.ActionTrash)
	bind(k.Star, mail.ActionStar)
	bind(k.MarkRead, mail.ActionMarkRead)
	bind(k.Snooze, mail.ActionSnooze)
	bind(k.Skip, mail.ActionSkip)
	return m
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// seedDemo fills an empty database with a small mailbox for trying the engine
func seedDemo(ctx context.Context, st *store.Store) error {
	n, err := st.CountMessages(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	labels := []mail.Label{
		{ID: "work", Name: "Work"},
		{ID: "newsletters", Name: "Newsletters"},
	}
	for _, l := range labels {
		if err := st.UpsertLabel(ctx, l); err != nil {
			return err
		}
	}

	now := time.Now()
	msgs := []mail.Message{
		{ID: "m1", From: "ana@example.com", Subject: "Quarterly report draft", Snippet: "Attached is the draft for review before Friday.", Date: now.Add(-2 * time.Hour), Size: 420 * 1024, Labels: []string{"work"}, Flags: mail.Flags{Unread: true, HasAttachment: true, Priority: mail.PriorityHigh}},
		{ID: "m2", From: "news@daily.example", Subject: "Your morning digest", Snippet: "Top stories picked for you.", Date: now.Add(-5 * time.Hour), Size: 60 * 1024, Labels: []string{"newsletters"}, Flags: mail.Flags{Unread: true, Priority: mail.PriorityLow}},
		{ID: "m3", From: "ivan@example.com", Subject: "Lunch tomorrow?", Snippet: "Same place at noon?", Date: now.Add(-26 * time.Hour), Size: 4 * 1024, Flags: mail.Flags{Priority: mail.PriorityNormal}},
		{ID: "m4", From: "billing@service.example", Subject: "Invoice #4821", Snippet: "Your invoice for August is ready.", Date: now.Add(-48 * time.Hour), Size: 180 * 1024, Flags: mail.Flags{Unread: true, HasAttachment: true, Priority: mail.PriorityNormal}},
		{ID: "m5", From: "petra@example.com", Subject: "Conference follow-up", Snippet: "Great meeting you last week.", Date: now.Add(-72 * time.Hour), Size: 12 * 1024, Flags: mail.Flags{Starred: true, Priority: mail.PriorityNormal}},
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Date.After(msgs[j].Date) })
	for _, m := range msgs {
		m.Location = mail.LocationInbox
		if err := st.UpsertMessage(ctx, m); err != nil {
			return err
		}
	}
	for _, m := range msgs {
		for _, l := range m.Labels {
			if err := st.ApplyAction(ctx, []string{m.ID}, mail.ActionAddLabel, l); err != nil {
				return err
			}
		}
	}
	return nil
}
