package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"vendorrisk/internal/models"
	"vendorrisk/internal/vendorquery"

	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// search is sent.
const DefaultDebounce = 300 * time.Millisecond

// Tab narrows the table by monitored flag.
type Tab string

const (
	TabAll         Tab = "all"
	TabMonitored   Tab = "monitored"
	TabUnmonitored Tab = "unmonitored"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	return t == TabAll || t == TabMonitored || t == TabUnmonitored
}

func (t Tab) monitored() *bool {
	var v bool
	switch t {
	case TabMonitored:
		v = true
	case TabUnmonitored:
		v = false
	default:
		return nil
	}
	return &v
}

func (t Tab) includes(v models.Vendor) bool {
	m := t.monitored()
	return m == nil || v.Monitored == *m
}

// Source says where the rendered rows came from.
type Source int

const (
	SourceNone Source = iota
	SourceServer
	SourceFallback
	SourceSearch
	SourceSearchFallback
)

func (s Source) String() string {
	switch s {
	case SourceServer:
		return "server"
	case SourceFallback:
		return "fallback"
	case SourceSearch:
		return "search"
	case SourceSearchFallback:
		return "search-fallback"
	}
	return "none"
}

// VendorAPI is the part of the API the controller reads.
type VendorAPI interface {
	ListVendors(ctx context.Context, f vendorquery.Filter) (*VendorPage, error)
	SearchVendors(ctx context.Context, title string) ([]models.Vendor, error)
}

// View is a snapshot of what the table shows.
type View struct {
	Rows        []models.Vendor
	Pagination  vendorquery.Pagination
	Source      Source
	Tab         Tab
	Search      string
	Selected    []uint
	AllSelected bool
	// Err is the failure that caused a degraded source, if any.
	Err error
}

// ControllerConfig configures a Controller. Only API is required.
type ControllerConfig struct {
	API      VendorAPI
	Debounce time.Duration
	PageSize int
	// Fallback is shown when the listing fails; defaults to SampleVendors.
	Fallback []models.Vendor
	// OnUnauthorized runs after any call is rejected with a 401.
	OnUnauthorized func()
	// OnChange receives every new view.
	OnChange func(View)
	Logger   *zap.Logger
}

// Controller decides which of the server listing, the search results and
// the fallback list is rendered, and keeps the selection in step with the
// rendered rows.
//
// Every request takes a sequence number; a response is applied only if no
// later request was started, so out-of-order completions cannot overwrite
// newer data.
type Controller struct {
	api            VendorAPI
	debounce       time.Duration
	fallback       []models.Vendor
	onUnauthorized func()
	onChange       func(View)
	logger         *zap.Logger

	mu         sync.Mutex
	seq        uint64
	filter     vendorquery.Filter
	tab        Tab
	query      string
	timer      *time.Timer
	searchRows []models.Vendor
	rows       []models.Vendor
	pagination vendorquery.Pagination
	source     Source
	err        error
	selected   map[uint]struct{}
}

// NewController creates a controller showing nothing until Load is called.
func NewController(cfg ControllerConfig) *Controller {
	filter := vendorquery.Default()
	if cfg.PageSize > 0 {
		filter.Limit = min(cfg.PageSize, vendorquery.MaxLimit)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fallback := cfg.Fallback
	if fallback == nil {
		fallback = SampleVendors()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		api:            cfg.API,
		debounce:       debounce,
		fallback:       fallback,
		onUnauthorized: cfg.OnUnauthorized,
		onChange:       cfg.OnChange,
		logger:         logger,
		filter:         filter,
		tab:            TabAll,
		selected:       make(map[uint]struct{}),
	}
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Load requests the first page of the listing.
func (c *Controller) Load(ctx context.Context) View {
	c.mu.Lock()
	c.filter.Page = 1
	c.mu.Unlock()
	c.fetchList(ctx)
	return c.View()
}

// SetTab switches the monitored tab. Active search results are narrowed
// locally; otherwise page 1 of the listing is requested.
func (c *Controller) SetTab(ctx context.Context, tab Tab) error {
	if !tab.Valid() {
		return fmt.Errorf("unknown tab %q", tab)
	}
	c.mu.Lock()
	c.tab = tab
	c.filter.Page = 1
	if c.query != "" {
		c.applySearchLocked()
		view := c.viewLocked()
		c.mu.Unlock()
		c.notify(view)
		return nil
	}
	c.mu.Unlock()
	c.fetchList(ctx)
	return nil
}

// SetStatus filters the listing by status; nil shows every status.
func (c *Controller) SetStatus(ctx context.Context, status *models.VendorStatus) error {
	if status != nil && !status.Valid() {
		return fmt.Errorf("unknown status %q", *status)
	}
	c.mu.Lock()
	c.filter.Status = status
	return c.refilterLocked(ctx)
}

// SetSort orders the listing.
func (c *Controller) SetSort(ctx context.Context, key vendorquery.SortKey, order vendorquery.SortOrder) error {
	c.mu.Lock()
	next := c.filter
	next.SortBy, next.SortOrder = key, order
	if err := next.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.filter = next
	return c.refilterLocked(ctx)
}

// refilterLocked resets to page 1 and refreshes the listing unless a search
// is active. It releases c.mu.
func (c *Controller) refilterLocked(ctx context.Context) error {
	c.filter.Page = 1
	searching := c.query != ""
	c.mu.Unlock()
	if !searching {
		c.fetchList(ctx)
	}
	return nil
}

// SetPage moves to page. The server is asked only when the current rows came
// from it; the fallback list is paged locally and search results are not
// paged at all.
func (c *Controller) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		return fmt.Errorf("invalid page %d", page)
	}
	c.mu.Lock()
	switch {
	case c.query != "":
		c.mu.Unlock()
		return nil
	case c.source == SourceFallback:
		c.filter.Page = page
		c.applyFallbackLocked()
		view := c.viewLocked()
		c.mu.Unlock()
		c.notify(view)
		return nil
	}
	c.filter.Page = page
	c.mu.Unlock()
	c.fetchList(ctx)
	return nil
}

// NextPage advances one page if there is one.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	p := c.pagination
	c.mu.Unlock()
	if !p.HasNext {
		return nil
	}
	return c.SetPage(ctx, p.Page+1)
}

// PrevPage goes back one page if there is one.
func (c *Controller) PrevPage(ctx context.Context) error {
	c.mu.Lock()
	p := c.pagination
	c.mu.Unlock()
	if !p.HasPrev {
		return nil
	}
	return c.SetPage(ctx, p.Page-1)
}

// SetSearch records the search text. A non-empty text is searched once no
// further input arrives for the debounce period; ctx must outlive that
// period. Clearing the text returns to page 1 of the listing at once.
func (c *Controller) SetSearch(ctx context.Context, text string) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	c.stopTimerLocked()
	if text == "" {
		wasSearching := c.query != ""
		c.query = ""
		c.searchRows = nil
		c.filter.Page = 1
		c.mu.Unlock()
		if wasSearching {
			c.fetchList(ctx)
		}
		return
	}

	c.query = text
	// responses to anything started before this keystroke are stale
	c.seq++
	c.timer = time.AfterFunc(c.debounce, func() { c.runSearch(ctx, text) })
	c.mu.Unlock()
}

// Close cancels a pending search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

// ToggleSelected adds or removes a rendered row from the selection. Rows
// that are not rendered cannot be selected.
func (c *Controller) ToggleSelected(id uint) View {
	c.mu.Lock()
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else if c.renderedLocked(id) {
		c.selected[id] = struct{}{}
	}
	view := c.viewLocked()
	c.mu.Unlock()
	c.notify(view)
	return view
}

// ToggleSelectAll selects exactly the rendered rows, or clears the
// selection when they are all selected already.
func (c *Controller) ToggleSelectAll() View {
	c.mu.Lock()
	if c.allSelectedLocked() {
		clear(c.selected)
	} else {
		clear(c.selected)
		for _, v := range c.rows {
			c.selected[v.ID] = struct{}{}
		}
	}
	view := c.viewLocked()
	c.mu.Unlock()
	c.notify(view)
	return view
}

func (c *Controller) fetchList(ctx context.Context) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	f := c.filter
	f.Search = ""
	f.Monitored = c.tab.monitored()
	c.mu.Unlock()

	page, err := c.api.ListVendors(ctx, f)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("discarding stale listing response", zap.Uint64("seq", seq))
		return
	}
	if err == nil && page.Pagination.OutOfRange() {
		// the page vanished underneath us, typically after deletes
		c.filter.Page = 1
		c.mu.Unlock()
		c.fetchList(ctx)
		return
	}

	c.err = err
	if err != nil {
		c.logger.Warn("vendor listing failed, showing fallback list", zap.Error(err))
		c.applyFallbackLocked()
	} else {
		c.source = SourceServer
		c.rows = page.Vendors
		c.pagination = page.Pagination
	}
	c.pruneSelectionLocked()
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	c.checkUnauthorized(err)
}

func (c *Controller) runSearch(ctx context.Context, title string) {
	c.mu.Lock()
	if c.query != title {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	found, err := c.api.SearchVendors(ctx, title)

	c.mu.Lock()
	if seq != c.seq || c.query != title {
		c.mu.Unlock()
		c.logger.Debug("discarding stale search response", zap.Uint64("seq", seq), zap.String("title", title))
		return
	}
	c.source = SourceSearch
	c.err = err
	if err != nil {
		c.logger.Warn("vendor search failed, matching fallback list", zap.String("title", title), zap.Error(err))
		found = vendorquery.SearchByName(c.fallback, title)
		c.source = SourceSearchFallback
	}
	c.searchRows = found
	c.applySearchLocked()
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	c.checkUnauthorized(err)
}

func (c *Controller) applyFallbackLocked() {
	f := c.filter
	f.Search = ""
	f.Monitored = c.tab.monitored()
	rows, p := vendorquery.Apply(c.fallback, f)
	if p.OutOfRange() {
		f.Page = 1
		c.filter.Page = 1
		rows, p = vendorquery.Apply(c.fallback, f)
	}
	c.source = SourceFallback
	c.rows = rows
	c.pagination = p
	c.pruneSelectionLocked()
}

// applySearchLocked renders the search results narrowed by the current tab.
// Search results are never paged.
func (c *Controller) applySearchLocked() {
	if c.source != SourceSearch && c.source != SourceSearchFallback {
		return
	}
	rows := make([]models.Vendor, 0, len(c.searchRows))
	for _, v := range c.searchRows {
		if c.tab.includes(v) {
			rows = append(rows, v)
		}
	}
	c.rows = rows
	c.pagination = vendorquery.NewPagination(1, len(rows), int64(len(rows)))
	c.pruneSelectionLocked()
}

func (c *Controller) pruneSelectionLocked() {
	for id := range c.selected {
		if !c.renderedLocked(id) {
			delete(c.selected, id)
		}
	}
}

func (c *Controller) renderedLocked(id uint) bool {
	return slices.ContainsFunc(c.rows, func(v models.Vendor) bool { return v.ID == id })
}

func (c *Controller) allSelectedLocked() bool {
	if len(c.rows) == 0 {
		return false
	}
	for _, v := range c.rows {
		if _, ok := c.selected[v.ID]; !ok {
			return false
		}
	}
	return true
}

func (c *Controller) viewLocked() View {
	selected := make([]uint, 0, len(c.selected))
	for id := range c.selected {
		selected = append(selected, id)
	}
	slices.Sort(selected)
	return View{
		Rows:        slices.Clone(c.rows),
		Pagination:  c.pagination,
		Source:      c.source,
		Tab:         c.tab,
		Search:      c.query,
		Selected:    selected,
		AllSelected: c.allSelectedLocked(),
		Err:         c.err,
	}
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) notify(v View) {
	if c.onChange != nil {
		c.onChange(v)
	}
}

func (c *Controller) checkUnauthorized(err error) {
	if errors.Is(err, ErrUnauthorized) && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
