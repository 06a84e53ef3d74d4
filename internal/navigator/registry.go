package navigator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/browser"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/internal/pagecache"
	"github.com/rohmanhakim/smoothstate/pkg/urlutil"
	"golang.org/x/net/html"
)

/*
Registry binds controllers to container elements of one window.

- An element is bound at most once; initializing it again returns the
  existing controller
- Pop-state events are routed by the container id stored in the history
  entry
- Click, hover and animation events are delegated to the innermost bound
  container holding the event target
*/
type Registry struct {
	window       browser.Window
	document     *browser.Document
	pageFetcher  PageFetcher
	metadataSink metadata.MetadataSink

	// renderMu serializes the render hooks of every controller bound here.
	renderMu sync.Mutex

	mu        sync.RWMutex
	byElement map[*html.Node]*Controller
	byID      map[string]*Controller
}

func NewRegistry(
	window browser.Window,
	document *browser.Document,
	pageFetcher PageFetcher,
	metadataSink metadata.MetadataSink,
) *Registry {
	return &Registry{
		window:       window,
		document:     document,
		pageFetcher:  pageFetcher,
		metadataSink: metadataSink,
		byElement:    make(map[*html.Node]*Controller),
		byID:         make(map[string]*Controller),
	}
}

// Initialize binds a controller to element. Elements without an id are
// refused. A new controller seeds the history state when the current entry
// has none and caches the live page under the current URL.
func (r *Registry) Initialize(ctx context.Context, element *html.Node, options Options) (*Controller, error) {
	id, _ := browser.Attr(element, "id")
	if id == "" {
		err := &NavigationError{
			Message: "every container needs an id",
			Cause:   ErrCauseMissingContainerID,
		}
		r.recordError(err)
		if options.Development {
			r.metadataSink.RecordDiagnostic("navigator", "Every smoothState container needs an id but the following one does not have one", []metadata.Attribute{
				metadata.NewAttr(metadata.AttrField, "id"),
			})
		}
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byElement[element]; ok {
		if options.Development {
			r.metadataSink.RecordDiagnostic("navigator", "container is already bound", []metadata.Attribute{
				metadata.NewAttr(metadata.AttrContainerID, id),
			})
		}
		return existing, nil
	}

	container := newContainer(id, element, r.document)
	controller, err := newController(ctx, r.window, container, options, r.pageFetcher, r.metadataSink, &r.renderMu)
	if err != nil {
		var navErr *NavigationError
		if errors.As(err, &navErr) {
			r.recordError(navErr)
		}
		return nil, err
	}

	if r.window.HistoryState() == nil {
		r.window.ReplaceState(browser.HistoryState{ID: id}, r.window.Title(), r.window.Location())
	}
	controller.seedCurrentPage()

	r.byElement[element] = controller
	r.byID[id] = controller
	return controller, nil
}

// Release unbinds element and closes its controller.
func (r *Registry) Release(element *html.Node) {
	r.mu.Lock()
	controller, ok := r.byElement[element]
	if ok {
		delete(r.byElement, element)
		if r.byID[controller.container.ID()] == controller {
			delete(r.byID, controller.container.ID())
		}
	}
	r.mu.Unlock()

	if ok {
		controller.Close()
	}
}

// Close releases every controller.
func (r *Registry) Close() {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.byElement))
	for _, c := range r.byElement {
		controllers = append(controllers, c)
	}
	r.byElement = make(map[*html.Node]*Controller)
	r.byID = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
}

func (r *Registry) Lookup(element *html.Node) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byElement[element]
	return c, ok
}

func (r *Registry) LookupByID(id string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// HandlePopState loads the popped URL into the controller named by the
// entry's state, unless it is already displayed or only the hash changed.
func (r *Registry) HandlePopState(event browser.PopStateEvent) (*Navigation, bool) {
	if event.State == nil {
		return nil, false
	}
	controller, ok := r.LookupByID(event.State.ID)
	if !ok {
		return nil, false
	}

	current := controller.CurrentURL()
	if event.URL.String() == current.String() || urlutil.IsHash(event.URL, current) {
		return nil, false
	}
	return controller.Load(event.URL, true), true
}

// DispatchClick offers the click to bound containers from the innermost
// outwards until one intercepts it.
func (r *Registry) DispatchClick(event *browser.ClickEvent) (*Navigation, bool) {
	for _, c := range r.containersOf(event.Target) {
		if nav, ok := c.HandleClick(event); ok {
			return nav, true
		}
	}
	return nil, false
}

// DispatchHover offers a hover to bound containers from the innermost
// outwards until one prefetches.
func (r *Registry) DispatchHover(event browser.HoverEvent) (*pagecache.PageRecord, bool) {
	for _, c := range r.containersOf(event.Target) {
		if record, ok := c.HandleHover(event); ok {
			return record, true
		}
	}
	return nil, false
}

// DispatchAnimation hands an animation event to the innermost bound
// container holding its target.
func (r *Registry) DispatchAnimation(event browser.AnimationEvent) bool {
	containers := r.containersOf(event.Target)
	if len(containers) == 0 {
		return false
	}
	return containers[0].DispatchAnimation(event)
}

// containersOf lists the controllers bound to n's ancestors, innermost first.
func (r *Registry) containersOf(n *html.Node) []*Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*Controller
	r.document.Read(func(*html.Node) {
		for cur := n; cur != nil; cur = cur.Parent {
			if c, ok := r.byElement[cur]; ok {
				found = append(found, c)
			}
		}
	})
	return found
}

func (r *Registry) recordError(err *NavigationError) {
	r.metadataSink.RecordError(
		time.Now(),
		"navigator",
		"Registry.Initialize",
		mapNavigationErrorToMetadataCause(err),
		err.Error(),
		nil,
	)
}
