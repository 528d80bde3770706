// Package form implements the editing session behind every admin screen: one
// controller, parameterised by a Schema, that opens a draft in add, edit or
// view mode, edits it, validates it and submits it once.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kart-admin/internal/model"
	"kart-admin/internal/upload"

	"github.com/rs/zerolog"
)

// Mode is how a session was opened.
type Mode string

const (
	ModeAdd  Mode = "add"
	ModeEdit Mode = "edit"
	ModeView Mode = "view"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAdd, ModeEdit, ModeView:
		return m, nil
	}
	return "", fmt.Errorf("unknown form mode %q", s)
}

// State is the lifecycle position of a controller.
type State string

const (
	StateClosed     State = "closed"
	StateOpen       State = "open"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
)

// Sentinels carried by the InvalidOperationError a blocked call returns.
var (
	ErrSubmitInProgress = errors.New("submit in progress")
	ErrReadOnly         = errors.New("form is read-only")
	ErrNotOpen          = errors.New("form is not open")
)

// PersistenceClient stores entities of every resource type.
type PersistenceClient interface {
	List(ctx context.Context, resource model.ResourceType, filters model.Filters) (model.Page, error)
	Create(ctx context.Context, resource model.ResourceType, payload model.Payload) (model.Entity, error)
	Update(ctx context.Context, resource model.ResourceType, id string, payload model.Payload) (model.Entity, error)
	Delete(ctx context.Context, resource model.ResourceType, id string) error
}

// ImageUploader stores an image and returns its URL.
type ImageUploader interface {
	Upload(ctx context.Context, img upload.Image) (upload.Result, error)
}

// Saved is emitted once per successful submit.
type Saved struct {
	Mode   Mode
	Entity model.Entity
}

// Snapshot is a read-only copy of a session for display.
type Snapshot struct {
	Resource    model.ResourceType        `json:"resource"`
	State       State                     `json:"state"`
	Mode        Mode                      `json:"mode,omitempty"`
	ID          string                    `json:"id,omitempty"`
	Draft       model.Fields              `json:"draft,omitempty"`
	Collections map[string][]model.Fields `json:"collections,omitempty"`
}

// Controller is the editing session of one screen. It is safe for concurrent
// use; the persistence and upload calls run without holding the lock.
type Controller struct {
	mu       sync.Mutex
	schema   Schema
	client   PersistenceClient
	uploader ImageUploader
	onSaved  func(Saved)
	logger   zerolog.Logger

	state       State
	mode        Mode
	source      model.Entity
	draft       model.Fields
	collections []Collection
	// session changes on every Open and Cancel so long calls can detect that
	// the draft they started from is gone.
	session uint64
}

// NewController creates a closed controller. uploader may be nil when the
// schema has no image fields.
func NewController(schema Schema, client PersistenceClient, uploader ImageUploader, logger zerolog.Logger) *Controller {
	return &Controller{
		schema:   schema,
		client:   client,
		uploader: uploader,
		state:    StateClosed,
		logger:   logger.With().Str("component", "form").Str("resource", string(schema.Resource)).Logger(),
	}
}

// OnSaved registers fn to be called after every successful submit, outside
// the controller lock.
func (c *Controller) OnSaved(fn func(Saved)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSaved = fn
}

// Schema returns the schema the controller was built with.
func (c *Controller) Schema() Schema { return c.schema }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the mode of the open session, or "" when closed.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Open starts a session. Add ignores src; Edit and View require it and work
// on a deep copy, so src is never mutated. Opening while already open
// discards the current draft and every unsaved edit.
func (c *Controller) Open(mode Mode, src *model.Entity) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return &model.InvalidOperationError{Op: "open form", Reason: err.Error()}
	}
	if mode != ModeAdd && src == nil {
		return &model.InvalidOperationError{Op: "open form", Reason: string(mode) + " mode needs a source entity"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy() {
		return invalid("open form", ErrSubmitInProgress)
	}
	if c.state == StateOpen {
		c.logger.Warn().
			Str("mode", string(c.mode)).
			Str("id", c.source.ID).
			Msg("re-opening form, unsaved edits discarded")
	}

	c.session++
	c.mode = mode
	if mode == ModeAdd {
		c.source = model.Entity{}
		c.draft = c.schema.defaults()
	} else {
		c.source = src.Clone()
		c.draft = src.FieldValues()
		if c.draft == nil {
			c.draft = model.Fields{}
		}
	}

	c.collections = make([]Collection, 0, len(c.schema.Collections))
	for _, cs := range c.schema.Collections {
		col := cs.New()
		col.LoadFields(c.source.ChildRecords(cs.Name))
		if mode == ModeView {
			col.Freeze(ErrReadOnly.Error())
		}
		c.collections = append(c.collections, col)
	}
	c.state = StateOpen

	c.logger.Debug().Str("mode", string(mode)).Str("id", c.source.ID).Msg("form opened")
	return nil
}

// Cancel discards the draft and every sub-collection editor. It never calls
// the persistence client. Cancelling a closed form is a no-op.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy() {
		return invalid("cancel form", ErrSubmitInProgress)
	}
	c.reset()
	return nil
}

// Close is Cancel.
func (c *Controller) Close() error { return c.Cancel() }

// SetField sets one draft field. The value is stored uncoerced; Submit
// coerces it.
func (c *Controller) SetField(name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkEditable("set field"); err != nil {
		return err
	}
	if _, ok := c.schema.Field(name); !ok {
		return &model.InvalidOperationError{Op: "set field", Reason: fmt.Sprintf("unknown field %q", name)}
	}
	c.draft[name] = model.Fields{name: value}.Clone()[name]
	return nil
}

// Field returns a copy of one draft value.
func (c *Controller) Field(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.draft[name]
	if !ok {
		return nil, false
	}
	return model.Fields{name: v}.Clone()[name], true
}

// Draft returns a deep copy of the draft, nil when closed.
func (c *Controller) Draft() model.Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// AddRecord adds a record to the named sub-collection and returns its
// temporary id.
func (c *Controller) AddRecord(collection string, f model.Fields) (string, error) {
	col, err := c.editableCollection("add record", collection)
	if err != nil {
		return "", err
	}
	return col.AddFields(f)
}

// RemoveRecord removes a record from the named sub-collection.
func (c *Controller) RemoveRecord(collection, id string) error {
	col, err := c.editableCollection("remove record", collection)
	if err != nil {
		return err
	}
	return col.Remove(id)
}

// SetDefault makes id the only default record of the named sub-collection.
func (c *Controller) SetDefault(collection, id string) error {
	col, err := c.editableCollection("set default", collection)
	if err != nil {
		return err
	}
	return col.SetDefault(id)
}

// Records returns the records of the named sub-collection, ids included.
func (c *Controller) Records(collection string) ([]model.Fields, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil, invalid("read records", ErrNotOpen)
	}
	col, err := c.collection(collection)
	if err != nil {
		return nil, err
	}
	return col.Records(), nil
}

// Snapshot returns a copy of the session for display.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{Resource: c.schema.Resource, State: c.state, Mode: c.mode}
	if c.state == StateClosed {
		return s
	}
	s.ID = c.source.ID
	s.Draft = c.draft.Clone()
	s.Collections = make(map[string][]model.Fields, len(c.collections))
	for _, col := range c.collections {
		s.Collections[col.Name()] = col.Records()
	}
	return s
}

// Submit validates the draft and, when it passes, sends the payload to the
// persistence client once: Create in Add mode, Update in Edit mode.
//
// A validation failure returns *model.ValidationError and leaves the form
// open in the same mode. A persistence failure returns
// *model.PersistenceFailure and leaves the form open with the draft intact.
// On success the form closes and the Saved event is returned and passed to
// the OnSaved handler.
func (c *Controller) Submit(ctx context.Context) (Saved, error) {
	c.mu.Lock()
	if err := c.checkEditable("submit"); err != nil {
		c.mu.Unlock()
		return Saved{}, err
	}
	c.state = StateValidating
	c.freezeCollections()
	session := c.session
	mode := c.mode
	in := PolicyInput{
		Resource:    c.schema.Resource,
		Mode:        mode,
		Draft:       c.draft.Clone(),
		Original:    c.source.Clone(),
		Collections: c.collectionPayloads(),
	}
	c.mu.Unlock()

	coerced, fieldErrs := validateFields(c.schema, in.Draft)
	in.Draft = coerced
	policyErrs, err := c.runPolicies(ctx, in)

	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return Saved{}, invalid("submit", ErrNotOpen)
	}
	if err != nil {
		c.reopen()
		c.mu.Unlock()
		return Saved{}, err
	}
	if fieldErrs = append(fieldErrs, policyErrs...); len(fieldErrs) > 0 {
		c.reopen()
		c.mu.Unlock()
		c.logger.Debug().Int("fields", len(fieldErrs)).Msg("submit rejected by validation")
		return Saved{}, model.NewValidationError(fieldErrs...)
	}

	c.draft = coerced.Clone()
	c.state = StateSubmitting
	id := c.source.ID
	payload := model.Payload{Fields: coerced, Collections: in.Collections}
	c.mu.Unlock()

	var entity model.Entity
	if mode == ModeAdd {
		entity, err = c.client.Create(ctx, c.schema.Resource, payload)
	} else {
		entity, err = c.client.Update(ctx, c.schema.Resource, id, payload)
	}

	c.mu.Lock()
	if err != nil {
		c.reopen()
		c.mu.Unlock()
		failure := asPersistenceFailure(err, string(mode), c.schema.Resource, id)
		c.logger.Warn().Err(err).Str("mode", string(mode)).Str("id", id).Msg("submit failed, draft kept")
		return Saved{}, failure
	}

	c.reset()
	handler := c.onSaved
	c.mu.Unlock()

	saved := Saved{Mode: mode, Entity: entity}
	c.logger.Info().Str("mode", string(mode)).Str("id", entity.ID).Msg("entity saved")
	if handler != nil {
		handler(saved)
	}
	return saved, nil
}

// UploadImage uploads img and stores its URL in an image field: a single
// slot is replaced, a list slot is appended to. A failed upload leaves the
// draft untouched.
func (c *Controller) UploadImage(ctx context.Context, field string, img upload.Image) (string, error) {
	c.mu.Lock()
	if err := c.checkEditable("upload image"); err != nil {
		c.mu.Unlock()
		return "", err
	}
	f, err := c.imageField("upload image", field)
	if err != nil {
		c.mu.Unlock()
		return "", err
	}
	if c.uploader == nil {
		c.mu.Unlock()
		return "", &model.InvalidOperationError{Op: "upload image", Reason: "no uploader configured"}
	}
	session := c.session
	c.mu.Unlock()

	res, err := c.uploader.Upload(ctx, img)
	if err != nil {
		c.logger.Warn().Err(err).Str("field", field).Msg("image upload failed")
		return "", fmt.Errorf("upload %s: %w", field, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session {
		return "", invalid("upload image", ErrNotOpen)
	}
	if err := c.checkEditable("upload image"); err != nil {
		return "", err
	}

	if f.Kind == Image {
		c.draft[field] = res.URL
	} else {
		urls, _ := model.ToStringSlice(c.draft[field])
		c.draft[field] = append(urls, res.URL)
	}
	return res.URL, nil
}

// RemoveImage clears url from an image field.
func (c *Controller) RemoveImage(field, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkEditable("remove image"); err != nil {
		return err
	}
	f, err := c.imageField("remove image", field)
	if err != nil {
		return err
	}

	if f.Kind == Image {
		if c.draft.String(field) != url {
			return &model.NotFoundError{Resource: "image", ID: url}
		}
		c.draft[field] = nil
		return nil
	}

	urls, _ := model.ToStringSlice(c.draft[field])
	for i, u := range urls {
		if u == url {
			c.draft[field] = append(urls[:i:i], urls[i+1:]...)
			return nil
		}
	}
	return &model.NotFoundError{Resource: "image", ID: url}
}

func (c *Controller) busy() bool {
	return c.state == StateValidating || c.state == StateSubmitting
}

func (c *Controller) checkEditable(op string) error {
	switch {
	case c.busy():
		return invalid(op, ErrSubmitInProgress)
	case c.state == StateClosed:
		return invalid(op, ErrNotOpen)
	case c.mode == ModeView:
		return invalid(op, ErrReadOnly)
	}
	return nil
}

func (c *Controller) editableCollection(op, name string) (Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkEditable(op); err != nil {
		return nil, err
	}
	return c.collection(name)
}

func (c *Controller) collection(name string) (Collection, error) {
	for _, col := range c.collections {
		if col.Name() == name {
			return col, nil
		}
	}
	return nil, &model.InvalidOperationError{Op: "use collection", Reason: fmt.Sprintf("unknown collection %q", name)}
}

func (c *Controller) imageField(op, name string) (Field, error) {
	f, ok := c.schema.Field(name)
	if !ok || (f.Kind != Image && f.Kind != ImageList) {
		return Field{}, &model.InvalidOperationError{Op: op, Reason: fmt.Sprintf("%q is not an image field", name)}
	}
	return f, nil
}

func (c *Controller) collectionPayloads() map[string][]model.Fields {
	out := make(map[string][]model.Fields, len(c.collections))
	for _, col := range c.collections {
		out[col.Name()] = col.Payload()
	}
	return out
}

func (c *Controller) freezeCollections() {
	for _, col := range c.collections {
		col.Freeze(ErrSubmitInProgress.Error())
	}
}

// reopen returns a validating or submitting session to Open.
func (c *Controller) reopen() {
	c.state = StateOpen
	if c.mode != ModeView {
		for _, col := range c.collections {
			col.Unfreeze()
		}
	}
}

func (c *Controller) reset() {
	if c.state != StateClosed {
		c.session++
	}
	c.state = StateClosed
	c.mode = ""
	c.source = model.Entity{}
	c.draft = nil
	c.collections = nil
}

func (c *Controller) runPolicies(ctx context.Context, in PolicyInput) ([]model.FieldError, error) {
	var out []model.FieldError
	for _, p := range c.schema.Policies {
		errs, err := p.Check(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("policy check: %w", err)
		}
		out = append(out, errs...)
	}
	return out, nil
}

func invalid(op string, cause error) error {
	return &model.InvalidOperationError{Op: op, Err: cause}
}

// asPersistenceFailure passes typed failures through and wraps anything else
// as an internal failure.
func asPersistenceFailure(err error, mode string, resource model.ResourceType, id string) error {
	var pf *model.PersistenceFailure
	if errors.As(err, &pf) {
		return err
	}
	kind := model.FailureInternal
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = model.FailureNetwork
	}
	op := "create"
	if mode != string(ModeAdd) {
		op = "update"
	}
	return &model.PersistenceFailure{Kind: kind, Op: op, Resource: resource, ID: id, Err: err}
}
