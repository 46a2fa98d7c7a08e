package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal"
	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/metrics"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// WordService is what the screens need from vocab.Service
type WordService interface {
	Lookup(ctx context.Context, word string) (vocab.WordRecord, error)
	Save(ctx context.Context, record vocab.WordRecord) (vocab.SavedWord, bool, error)
	List(ctx context.Context) ([]vocab.SavedWord, error)
	Delete(ctx context.Context, id string) error
	Speak(ctx context.Context, text string) (vocab.Media, error)
	Label(ctx context.Context, image []byte, mimeType string) ([]vocab.Label, error)
	GenerateImage(ctx context.Context, id string) (vocab.SavedWord, error)
	GenerateVideo(ctx context.Context, id string) (vocab.SavedWord, error)
}

// MediaResolver maps a stored media reference to a file on disk
type MediaResolver interface {
	Path(ref string) string
}

// PositionStore keeps small settings such as the flashcard position
type PositionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// Config wires the application to its services
type Config struct {
	Service   WordService
	Media     MediaResolver
	Positions PositionStore // optional

	// Live practice is disabled when Transport is nil
	Transport    live.Transport
	LiveConfig   live.Config
	FrameSamples int

	Workers int // concurrent media generations
	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
}

// Application represents the main GUI application
type Application struct {
	app    fyne.App
	window fyne.Window
	config *Config
	logger *zap.SugaredLogger

	tabs      *container.AppTabs
	search    *searchTab
	saved     *savedTab
	cards     *flashcardTab
	practice  *liveTab
	tabSearch *container.TabItem
	tabSaved  *container.TabItem
	tabCards  *container.TabItem
	tabLive   *container.TabItem

	statusLabel      *widget.Label
	queueStatusLabel *widget.Label

	// Media generation runs in the background
	queue *JobQueue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	words []vocab.SavedWord
}

// New creates the GUI application
func New(config *Config) (*Application, error) {
	if config == nil || config.Service == nil {
		return nil, errors.New("gui needs a word service")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.LiveConfig.Model == "" {
		config.LiveConfig = live.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	fyneApp := app.NewWithID("org.codeberg.snonux.lexilive")
	fyneApp.SetIcon(GetAppIcon())

	a := &Application{
		app:    fyneApp,
		config: config,
		logger: config.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	a.queue = NewJobQueue(ctx, config.Workers, a.runMediaJob)
	a.queue.SetCallbacks(a.onQueueStatusUpdate, a.onJobComplete)

	a.setupUI()
	a.refreshWords()
	return a, nil
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("Lexilive v%s - Vocabulary Trainer", internal.Version))
	a.window.SetIcon(GetAppIcon())
	a.window.Resize(fyne.NewSize(960, 720))

	a.search = newSearchTab(a)
	a.saved = newSavedTab(a)
	a.cards = newFlashcardTab(a)
	a.practice = newLiveTab(a)

	a.tabSearch = container.NewTabItemWithIcon("Search", theme.SearchIcon(), a.search.content)
	a.tabSaved = container.NewTabItemWithIcon("Saved", theme.ListIcon(), a.saved.content)
	a.tabCards = container.NewTabItemWithIcon("Flashcards", theme.ViewRefreshIcon(), a.cards.content)
	a.tabLive = container.NewTabItemWithIcon("Live practice", theme.MediaRecordIcon(), a.practice.content)
	a.tabs = container.NewAppTabs(a.tabSearch, a.tabSaved, a.tabCards, a.tabLive)
	a.tabs.OnSelected = func(tab *container.TabItem) {
		a.window.Canvas().Unfocus()
		if tab == a.tabCards {
			a.cards.render()
		}
	}

	a.statusLabel = widget.NewLabel("Ready")
	a.queueStatusLabel = widget.NewLabel("Queue: Empty")
	a.queueStatusLabel.TextStyle = fyne.TextStyle{Italic: true}

	statusSection := container.NewBorder(
		widget.NewSeparator(), nil, nil,
		a.queueStatusLabel,
		a.statusLabel,
	)

	content := container.NewBorder(nil, statusSection, nil, nil, a.tabs)

	// Add the tooltip layer to enable tooltips
	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))

	a.window.SetOnClosed(func() {
		a.practice.stop()
		a.cancel()
		a.queue.Stop()
		a.wg.Wait()
	})

	a.setupKeyboardShortcuts()
}

// Run starts the GUI application
func (a *Application) Run() {
	a.window.ShowAndRun()
}

// goWithContext runs fn in the background, tracked for shutdown
func (a *Application) goWithContext(fn func(ctx context.Context)) {
	if a.ctx.Err() != nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn(a.ctx)
	}()
}

// updateStatus sets the status line; must run on the UI goroutine
func (a *Application) updateStatus(message string) {
	a.statusLabel.SetText(message)
}

// showError logs err and shows it in a dialog; must run on the UI goroutine
func (a *Application) showError(action string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	a.logger.Warnw(action+" failed", "error", err)
	a.updateStatus(fmt.Sprintf("%s failed", action))
	dialog.ShowError(fmt.Errorf("%s: %w", action, err), a.window)
}

// refreshWords reloads the saved list and pushes it to the screens
func (a *Application) refreshWords() {
	a.goWithContext(func(ctx context.Context) {
		words, err := a.config.Service.List(ctx)
		fyne.Do(func() {
			if err != nil {
				a.showError("Loading saved words", err)
				return
			}
			a.setWords(words)
		})
	})
}

// setWords must run on the UI goroutine
func (a *Application) setWords(words []vocab.SavedWord) {
	a.mu.Lock()
	a.words = words
	a.mu.Unlock()

	a.config.Metrics.SetSavedWords(len(words))
	a.saved.setWords(words)
	a.cards.setWords(words)
	a.search.refreshSaveButton()
}

func (a *Application) savedWords() []vocab.SavedWord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]vocab.SavedWord(nil), a.words...)
}

func (a *Application) mediaPath(ref string) string {
	if a.config.Media == nil || ref == "" {
		return ""
	}
	return a.config.Media.Path(ref)
}

// speak synthesizes text in the background and loads it into player
func (a *Application) speak(text string, player *AudioPlayer, autoplay bool) {
	a.updateStatus(fmt.Sprintf("Synthesizing '%s'...", text))
	a.goWithContext(func(ctx context.Context) {
		speech, err := a.config.Service.Speak(ctx, text)
		fyne.Do(func() {
			if err != nil {
				a.showError("Speech synthesis", err)
				return
			}
			player.SetSpeech(speech, text)
			a.updateStatus("Ready")
			if autoplay {
				player.Play()
			}
		})
	})
}

func (a *Application) runMediaJob(ctx context.Context, job MediaJob) (vocab.SavedWord, error) {
	if job.Kind == vocab.KindVideo {
		return a.config.Service.GenerateVideo(ctx, job.WordID)
	}
	return a.config.Service.GenerateImage(ctx, job.WordID)
}

// generateMedia queues an image or video generation for word
func (a *Application) generateMedia(word vocab.SavedWord, kind string) {
	job, err := a.queue.Add(word.ID, word.Word, kind)
	if err != nil {
		a.showError(fmt.Sprintf("Queueing %s", kind), err)
		return
	}
	a.updateStatus(fmt.Sprintf("Generating %s for '%s' (job #%d)", kind, word.Word, job.ID))
}

func (a *Application) onQueueStatusUpdate(job MediaJob) {
	fyne.Do(a.updateQueueStatus)
}

func (a *Application) onJobComplete(job MediaJob) {
	if job.Error != nil {
		a.logger.Warnw("media generation failed", "word", job.Word, "kind", job.Kind, "error", job.Error)
	} else {
		a.logger.Infow("media generated", "word", job.Word, "kind", job.Kind, "duration", job.CompletedAt.Sub(job.StartedAt))
	}

	fyne.Do(func() {
		if job.Error != nil {
			a.showError(fmt.Sprintf("Generating %s for '%s'", job.Kind, job.Word), job.Error)
			return
		}
		a.updateStatus(fmt.Sprintf("Generated %s for '%s'", job.Kind, job.Word))
		a.refreshWords()
	})
}

// updateQueueStatus must run on the UI goroutine
func (a *Application) updateQueueStatus() {
	queued, processing, completed, failed := a.queue.GetQueueStatus()
	if queued == 0 && processing == 0 {
		if completed == 0 && failed == 0 {
			a.queueStatusLabel.SetText("Queue: Empty")
		} else {
			a.queueStatusLabel.SetText(fmt.Sprintf("Queue: idle (%d done, %d failed)", completed, failed))
		}
		a.saved.setBusy(nil)
		return
	}
	a.queueStatusLabel.SetText(fmt.Sprintf("Queue: %d waiting, %d generating", queued, processing))
	a.saved.setBusy(a.queue.ActiveJobs())
}

// setupKeyboardShortcuts binds keys that act on the selected tab when no
// entry has focus
func (a *Application) setupKeyboardShortcuts() {
	a.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if a.window.Canvas().Focused() != nil {
			return
		}
		switch a.tabs.Selected() {
		case a.tabCards:
			a.cards.handleKey(ev.Name)
		case a.tabSearch:
			a.search.handleKey(ev.Name)
		case a.tabSaved:
			a.saved.handleKey(ev.Name)
		}
	})

	a.window.Canvas().SetOnTypedRune(func(r rune) {
		if a.window.Canvas().Focused() != nil {
			return
		}
		switch r {
		case '1':
			a.tabs.Select(a.tabSearch)
		case '2':
			a.tabs.Select(a.tabSaved)
		case '3':
			a.tabs.Select(a.tabCards)
		case '4':
			a.tabs.Select(a.tabLive)
		case '/':
			a.tabs.Select(a.tabSearch)
			a.window.Canvas().Focus(a.search.entry)
		case 'h', '?':
			a.onShowHotkeys()
		default:
			switch a.tabs.Selected() {
			case a.tabCards:
				a.cards.handleRune(r)
			case a.tabSearch:
				a.search.handleRune(r)
			case a.tabSaved:
				a.saved.handleRune(r)
			}
		}
	})
}

func (a *Application) onShowHotkeys() {
	text := `Tabs: 1 Search, 2 Saved, 3 Flashcards, 4 Live practice
/ focus search, Escape leave a text field

Search: s save, p play pronunciation, l label an image
Saved: p play, i generate image, v generate video, Delete remove
Flashcards: Space flip, Left/Right previous/next, r shuffle, p play`
	dialog.ShowInformation("Keyboard shortcuts", text, a.window)
}
