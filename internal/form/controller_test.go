package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"kart-admin/internal/model"
	"kart-admin/internal/upload"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPersistenceClient is a mock implementation of PersistenceClient.
type MockPersistenceClient struct {
	mock.Mock
}

func (m *MockPersistenceClient) List(ctx context.Context, resource model.ResourceType, filters model.Filters) (model.Page, error) {
	args := m.Called(ctx, resource, filters)
	return args.Get(0).(model.Page), args.Error(1)
}

func (m *MockPersistenceClient) Create(ctx context.Context, resource model.ResourceType, payload model.Payload) (model.Entity, error) {
	args := m.Called(ctx, resource, payload)
	return args.Get(0).(model.Entity), args.Error(1)
}

func (m *MockPersistenceClient) Update(ctx context.Context, resource model.ResourceType, id string, payload model.Payload) (model.Entity, error) {
	args := m.Called(ctx, resource, id, payload)
	return args.Get(0).(model.Entity), args.Error(1)
}

func (m *MockPersistenceClient) Delete(ctx context.Context, resource model.ResourceType, id string) error {
	args := m.Called(ctx, resource, id)
	return args.Error(0)
}

// MockImageUploader is a mock implementation of ImageUploader.
type MockImageUploader struct {
	mock.Mock
}

func (m *MockImageUploader) Upload(ctx context.Context, img upload.Image) (upload.Result, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(upload.Result), args.Error(1)
}

func productSchema() Schema {
	return Schema{
		Resource: model.ResourceProducts,
		Fields: []Field{
			{Name: "name", Kind: String, Required: true, Message: "Please enter product name"},
			{Name: "price", Kind: Number, Required: true, NonNegative: true},
			{Name: "stock", Kind: Integer, NonNegative: true},
			{Name: "status", Kind: Enum, Required: true, Options: []string{"active", "inactive"}, Default: "active"},
			{Name: "isFeatured", Kind: Bool, Default: false},
			{Name: "categoryId", Kind: Reference},
			{Name: "cover", Kind: Image},
			{Name: "images", Kind: ImageList},
		},
		Collections: []CollectionSpec{
			CollectionOf[model.ProductVariant]("productVariants", "variant"),
		},
	}
}

func userSchema() Schema {
	return Schema{
		Resource: model.ResourceUsers,
		Fields: []Field{
			{Name: "username", Kind: String, Required: true},
			{Name: "full_name", Kind: String, Required: true},
		},
		Collections: []CollectionSpec{
			CollectionOf[model.Address]("addresses", "address"),
		},
	}
}

func sourceProduct() model.Entity {
	return model.Entity{
		ID: "P001",
		Fields: model.Fields{
			"name":   "Classic Tee",
			"price":  29.99,
			"status": "active",
			"images": []string{"https://cdn/a.png"},
		},
		Children: map[string][]model.Fields{
			"productVariants": {
				{"id": "V1", "size": "M", "colorName": "Red", "price": 29.99, "quantity": 10},
			},
		},
	}
}

func sourceUser() model.Entity {
	return model.Entity{
		ID:     "U001",
		Fields: model.Fields{"username": "alice", "full_name": "Alice Nguyen"},
		Children: map[string][]model.Fields{
			"addresses": {
				{"id": "A1", "full_name": "Alice Nguyen", "phone": "0901", "address": "1 Le Loi", "ward": "Ben Nghe", "district": "1", "city": "HCMC", "is_default": true},
				{"id": "A2", "full_name": "Alice Nguyen", "phone": "0901", "address": "9 Tran Phu", "ward": "Loc Tho", "district": "Nha Trang", "city": "Khanh Hoa", "is_default": false},
			},
		},
	}
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestOpenEditThenCancel_LeavesSourceUnchanged(t *testing.T) {
	client := new(MockPersistenceClient)
	c := NewController(productSchema(), client, nil, zerolog.Nop())

	src := sourceProduct()
	before := src.Clone()

	require.NoError(t, c.Open(ModeEdit, &src))
	require.NoError(t, c.SetField("name", "Changed"))
	require.NoError(t, c.SetField("images", []string{"https://cdn/b.png"}))
	_, err := c.AddRecord("productVariants", model.Fields{"size": "L", "colorName": "Blue", "price": 10})
	require.NoError(t, err)
	require.NoError(t, c.RemoveRecord("productVariants", "V1"))

	require.NoError(t, c.Cancel())

	assert.Equal(t, before, src)
	assert.Equal(t, StateClosed, c.State())
	assert.Nil(t, c.Draft())
	client.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpen_DraftIsACopy(t *testing.T) {
	c := NewController(productSchema(), new(MockPersistenceClient), nil, zerolog.Nop())
	src := sourceProduct()
	require.NoError(t, c.Open(ModeEdit, &src))

	src.Fields["name"] = "Mutated after open"
	src.Fields["images"].([]string)[0] = "mutated"

	v, _ := c.Field("name")
	assert.Equal(t, "Classic Tee", v)
	assert.Equal(t, []string{"https://cdn/a.png"}, c.Draft()["images"])
}

func TestOpen_AddUsesSchemaDefaults(t *testing.T) {
	c := NewController(productSchema(), new(MockPersistenceClient), nil, zerolog.Nop())
	require.NoError(t, c.Open(ModeAdd, nil))

	assert.Equal(t, model.Fields{"status": "active", "isFeatured": false}, c.Draft())
	records, err := c.Records("productVariants")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOpen_EditWithoutSource(t *testing.T) {
	c := NewController(productSchema(), new(MockPersistenceClient), nil, zerolog.Nop())

	assert.ErrorIs(t, c.Open(ModeEdit, nil), model.ErrInvalidOperation)
	assert.ErrorIs(t, c.Open(Mode("delete"), nil), model.ErrInvalidOperation)
	assert.Equal(t, StateClosed, c.State())
}

func TestOpen_AgainDiscardsEdits(t *testing.T) {
	c := NewController(productSchema(), new(MockPersistenceClient), nil, zerolog.Nop())
	src := sourceProduct()

	require.NoError(t, c.Open(ModeEdit, &src))
	require.NoError(t, c.SetField("name", "Unsaved"))
	require.NoError(t, c.Open(ModeEdit, &src))

	v, _ := c.Field("name")
	assert.Equal(t, "Classic Tee", v)
}

func TestSetField_Errors(t *testing.T) {
	c := NewController(productSchema(), new(MockPersistenceClient), nil, zerolog.Nop())

	err := c.SetField("name", "x")
	assert.ErrorIs(t, err, ErrNotOpen)

	require.NoError(t, c.Open(ModeAdd, nil))
	err = c.SetField("nope", "x")
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
}

func TestSubmit_MissingRequiredFieldNeverCallsClient(t *testing.T) {
	client := new(MockPersistenceClient)
	c := NewController(productSchema(), client, nil, zerolog.Nop())

	require.NoError(t, c.Open(ModeAdd, nil))
	require.NoError(t, c.SetField("price", 10))

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	fe, ok := verr.Field("name")
	require.True(t, ok)
	assert.Equal(t, "Please enter product name", fe.Message)

	assert.Equal(t, StateOpen, c.State())
	assert.Equal(t, ModeAdd, c.Mode())
	client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)

	// the form stays usable after a failed validation
	require.NoError(t, c.SetField("name", "Tee"))
	_, err = c.AddRecord("productVariants", model.Fields{"size": "M", "colorName": "Red"})
	assert.NoError(t, err)
}

func TestSubmit_ValidationListsEveryField(t *testing.T) {
	c := NewController(productSchema(), new(MockPersistenceClient), nil, zerolog.Nop())
	require.NoError(t, c.Open(ModeAdd, nil))
	require.NoError(t, c.SetField("price", "-5"))
	require.NoError(t, c.SetField("stock", 1.5))
	require.NoError(t, c.SetField("status", "archived"))
	require.NoError(t, c.SetField("isFeatured", "maybe"))

	_, err := c.Submit(context.Background())
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	got := map[string]string{}
	for _, fe := range verr.Fields {
		got[fe.Field] = fe.Message
	}
	assert.Equal(t, map[string]string{
		"name":       "Please enter product name",
		"price":      "must not be negative",
		"stock":      "must be a whole number",
		"status":     "must be one of active, inactive",
		"isFeatured": "must be true or false",
	}, got)
}

func TestSubmit_CoercesValues(t *testing.T) {
	client := new(MockPersistenceClient)
	c := NewController(productSchema(), client, nil, zerolog.Nop())

	require.NoError(t, c.Open(ModeAdd, nil))
	require.NoError(t, c.SetField("name", "  Tee "))
	require.NoError(t, c.SetField("price", "29.99"))
	require.NoError(t, c.SetField("stock", float64(100)))
	require.NoError(t, c.SetField("isFeatured", "true"))
	require.NoError(t, c.SetField("categoryId", ""))

	client.On("Create", mock.Anything, model.ResourceProducts, mock.MatchedBy(func(p model.Payload) bool {
		return p.Fields["name"] == "Tee" &&
			p.Fields["price"] == 29.99 &&
			p.Fields["stock"] == 100 &&
			p.Fields["isFeatured"] == true &&
			p.Fields["categoryId"] == nil
	})).Return(model.Entity{ID: "P9"}, nil).Once()

	saved, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "P9", saved.Entity.ID)
	client.AssertExpectations(t)
}

func TestSubmit_NonFiniteNumberNeverCallsClient(t *testing.T) {
	for _, raw := range []any{"NaN", "Inf", "-Infinity"} {
		t.Run(fmt.Sprint(raw), func(t *testing.T) {
			client := new(MockPersistenceClient)
			c := NewController(productSchema(), client, nil, zerolog.Nop())

			require.NoError(t, c.Open(ModeAdd, nil))
			require.NoError(t, c.SetField("name", "Tee"))
			require.NoError(t, c.SetField("price", raw))

			_, err := c.Submit(context.Background())
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			fe, ok := verr.Field("price")
			require.True(t, ok)
			assert.Equal(t, "must be a number", fe.Message)

			assert.Equal(t, StateOpen, c.State())
			client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestViewMode_RejectsMutations(t *testing.T) {
	client := new(MockPersistenceClient)
	uploader := new(MockImageUploader)
	c := NewController(userSchema(), client, uploader, zerolog.Nop())
	src := sourceUser()

	require.NoError(t, c.Open(ModeView, &src))

	assert.ErrorIs(t, c.SetField("username", "bob"), ErrReadOnly)
	_, err := c.AddRecord("addresses", model.Fields{"full_name": "x"})
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
	assert.ErrorIs(t, c.RemoveRecord("addresses", "A1"), ErrReadOnly)
	assert.ErrorIs(t, c.SetDefault("addresses", "A2"), ErrReadOnly)
	_, err = c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrReadOnly)

	records, err := c.Records("addresses")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	assert.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())
	client.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestSubmit_DuplicateSubmitIsRejected(t *testing.T) {
	client := new(MockPersistenceClient)
	c := NewController(productSchema(), client, nil, zerolog.Nop())

	entered := make(chan struct{})
	release := make(chan struct{})
	client.On("Create", mock.Anything, model.ResourceProducts, mock.Anything).
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(model.Entity{ID: "P1"}, nil).Once()

	require.NoError(t, c.Open(ModeAdd, nil))
	require.NoError(t, c.SetField("name", "Tee"))
	require.NoError(t, c.SetField("price", 10))

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Submit(context.Background())
	}()

	<-entered
	assert.Equal(t, StateSubmitting, c.State())

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.ErrorIs(t, c.SetField("name", "x"), ErrSubmitInProgress)
	assert.ErrorIs(t, c.Cancel(), ErrSubmitInProgress)
	assert.ErrorIs(t, c.Open(ModeAdd, nil), ErrSubmitInProgress)
	_, err = c.AddRecord("productVariants", model.Fields{"size": "M", "colorName": "Red"})
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, StateClosed, c.State())
	client.AssertNumberOfCalls(t, "Create", 1)
}

func TestSubmit_ValidatingBlocksMutations(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	slow := PolicyFunc(func(ctx context.Context, in PolicyInput) ([]model.FieldError, error) {
		close(entered)
		<-release
		return nil, nil
	})

	client := new(MockPersistenceClient)
	client.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(model.Entity{ID: "P1"}, nil)
	c := NewController(productSchema().WithPolicies(slow), client, nil, zerolog.Nop())
	require.NoError(t, c.Open(ModeAdd, nil))
	require.NoError(t, c.SetField("name", "Tee"))
	require.NoError(t, c.SetField("price", 1))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()

	<-entered
	assert.Equal(t, StateValidating, c.State())
	assert.ErrorIs(t, c.SetField("name", "late edit"), ErrSubmitInProgress)
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("submit did not finish")
	}
}

func TestSubmit_PersistenceFailureKeepsDraft(t *testing.T) {
	client := new(MockPersistenceClient)
	c := NewController(userSchema(), client, nil, zerolog.Nop())
	src := sourceUser()

	failure := &model.PersistenceFailure{Kind: model.FailureNetwork, Op: "update", Resource: model.ResourceUsers, ID: "U001", Err: errors.New("connection refused")}
	client.On("Update", mock.Anything, model.ResourceUsers, "U001", mock.Anything).Return(model.Entity{}, failure).Once()

	require.NoError(t, c.Open(ModeEdit, &src))
	require.NoError(t, c.SetField("full_name", "Alice N."))

	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPersistence)
	var pf *model.PersistenceFailure
	require.ErrorAs(t, err, &pf)
	assert.True(t, pf.Retryable())

	assert.Equal(t, StateOpen, c.State())
	assert.Equal(t, ModeEdit, c.Mode())
	v, _ := c.Field("full_name")
	assert.Equal(t, "Alice N.", v)

	// retry succeeds with the same draft
	client.On("Update", mock.Anything, model.ResourceUsers, "U001", mock.MatchedBy(func(p model.Payload) bool {
		return p.Fields["full_name"] == "Alice N."
	})).Return(model.Entity{ID: "U001"}, nil).Once()

	saved, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeEdit, saved.Mode)
	client.AssertExpectations(t)
}

func TestSubmit_UntypedClientErrorIsWrapped(t *testing.T) {
	client := new(MockPersistenceClient)
	c := NewController(userSchema(), client, nil, zerolog.Nop())
	client.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(model.Entity{}, context.DeadlineExceeded)

	require.NoError(t, c.Open(ModeAdd, nil))
	require.NoError(t, c.SetField("username", "bob"))
	require.NoError(t, c.SetField("full_name", "Bob"))

	_, err := c.Submit(context.Background())
	var pf *model.PersistenceFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, model.FailureNetwork, pf.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_PoliciesRun(t *testing.T) {
	var seen PolicyInput
	policy := PolicyFunc(func(ctx context.Context, in PolicyInput) ([]model.FieldError, error) {
		seen = in
		if in.Draft.String("username") == "root" {
			return []model.FieldError{{Field: "username", Message: "is reserved"}}, nil
		}
		return nil, nil
	})
	client := new(MockPersistenceClient)
	c := NewController(userSchema().WithPolicies(policy), client, nil, zerolog.Nop())
	src := sourceUser()

	require.NoError(t, c.Open(ModeEdit, &src))
	require.NoError(t, c.SetField("username", "root"))

	_, err := c.Submit(context.Background())
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	_, ok := verr.Field("username")
	assert.True(t, ok)
	assert.Equal(t, ModeEdit, seen.Mode)
	assert.Equal(t, "alice", seen.Original.Fields["username"])
	assert.Len(t, seen.Collections["addresses"], 2)

	broken := PolicyFunc(func(ctx context.Context, in PolicyInput) ([]model.FieldError, error) {
		return nil, errors.New("lookup failed")
	})
	c2 := NewController(userSchema().WithPolicies(broken), client, nil, zerolog.Nop())
	require.NoError(t, c2.Open(ModeEdit, &src))
	_, err = c2.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup failed")
	assert.Equal(t, StateOpen, c2.State())
	client.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_OnSavedHandler(t *testing.T) {
	client := new(MockPersistenceClient)
	client.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(model.Entity{ID: "U9"}, nil)
	c := NewController(userSchema(), client, nil, zerolog.Nop())

	var events []Saved
	c.OnSaved(func(s Saved) {
		events = append(events, s)
		// the controller lock is released before the handler runs
		assert.Equal(t, StateClosed, c.State())
	})

	require.NoError(t, c.Open(ModeAdd, nil))
	require.NoError(t, c.SetField("username", "bob"))
	require.NoError(t, c.SetField("full_name", "Bob"))
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, ModeAdd, events[0].Mode)
	assert.Equal(t, "U9", events[0].Entity.ID)
}

func TestUploadImage_Slots(t *testing.T) {
	uploader := new(MockImageUploader)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(upload.Result{URL: "https://cdn/new.png"}, nil)
	c := NewController(productSchema(), new(MockPersistenceClient), uploader, zerolog.Nop())
	src := sourceProduct()
	require.NoError(t, c.Open(ModeEdit, &src))

	url, err := c.UploadImage(context.Background(), "cover", upload.Image{Name: "c.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/new.png", url)
	v, _ := c.Field("cover")
	assert.Equal(t, "https://cdn/new.png", v)

	_, err = c.UploadImage(context.Background(), "images", upload.Image{Name: "g.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a.png", "https://cdn/new.png"}, c.Draft()["images"])
	assert.Equal(t, []string{"https://cdn/a.png"}, src.Fields["images"])

	require.NoError(t, c.RemoveImage("images", "https://cdn/a.png"))
	assert.Equal(t, []string{"https://cdn/new.png"}, c.Draft()["images"])
	assert.ErrorIs(t, c.RemoveImage("images", "https://cdn/missing.png"), model.ErrNotFound)
	require.NoError(t, c.RemoveImage("cover", "https://cdn/new.png"))

	_, err = c.UploadImage(context.Background(), "name", upload.Image{})
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
}

func TestUploadImage_FailureLeavesDraftUntouched(t *testing.T) {
	uploader := new(MockImageUploader)
	uploader.On("Upload", mock.Anything, mock.Anything).Return(upload.Result{}, errors.New("S3 unavailable"))
	c := NewController(productSchema(), new(MockPersistenceClient), uploader, zerolog.Nop())
	src := sourceProduct()
	require.NoError(t, c.Open(ModeEdit, &src))
	before := c.Draft()

	_, err := c.UploadImage(context.Background(), "images", upload.Image{Name: "g.png", Data: pngBytes})
	require.Error(t, err)

	assert.Equal(t, before, c.Draft())
	assert.Equal(t, StateOpen, c.State())
	require.NoError(t, c.SetField("name", "still editable"))
}

func TestUploadImage_SessionClosedDuringUpload(t *testing.T) {
	uploader := new(MockImageUploader)
	c := NewController(productSchema(), new(MockPersistenceClient), uploader, zerolog.Nop())
	uploader.On("Upload", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { _ = c.Cancel() }).
		Return(upload.Result{URL: "https://cdn/late.png"}, nil)

	require.NoError(t, c.Open(ModeAdd, nil))
	_, err := c.UploadImage(context.Background(), "cover", upload.Image{Name: "c.png", Data: pngBytes})
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Equal(t, StateClosed, c.State())
}

func TestScenario_ProductAddWithVariantsAndCover(t *testing.T) {
	client := new(MockPersistenceClient)
	uploader := new(MockImageUploader)
	c := NewController(productSchema(), client, uploader, zerolog.Nop())

	uploader.On("Upload", mock.Anything, mock.MatchedBy(func(img upload.Image) bool {
		return img.Name == "cover.png"
	})).Return(upload.Result{URL: "https://cdn.example.com/products/cover.png"}, nil).Once()

	var captured model.Payload
	client.On("Create", mock.Anything, model.ResourceProducts, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).(model.Payload) }).
		Return(model.Entity{ID: "P100"}, nil).Once()

	require.NoError(t, c.Open(ModeAdd, nil))
	require.NoError(t, c.SetField("name", "Summer Tee"))
	require.NoError(t, c.SetField("price", 29.99))
	_, err := c.AddRecord("productVariants", model.Fields{"size": "M", "color_name": "Red", "price": 29.99, "quantity": 100})
	require.NoError(t, err)
	_, err = c.AddRecord("productVariants", model.Fields{"size": "L", "color_name": "Blue", "price": 34.99, "quantity": 80})
	require.NoError(t, err)
	_, err = c.UploadImage(context.Background(), "cover", upload.Image{Name: "cover.png", ContentType: "image/png", Data: pngBytes})
	require.NoError(t, err)

	saved, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "P100", saved.Entity.ID)

	client.AssertNumberOfCalls(t, "Create", 1)
	variants := captured.Collections["productVariants"]
	require.Len(t, variants, 2)
	assert.Equal(t, "M", variants[0]["size"])
	assert.Equal(t, "Red", variants[0]["colorName"])
	assert.Equal(t, 100, variants[0]["quantity"])
	assert.Equal(t, "L", variants[1]["size"])
	assert.InDelta(t, 34.99, variants[1]["price"], 0.0001)
	assert.NotContains(t, variants[0], "id")
	assert.Equal(t, "https://cdn.example.com/products/cover.png", captured.Fields["cover"])
	uploader.AssertExpectations(t)
}

func TestScenario_UserEditSetDefaultAddress(t *testing.T) {
	client := new(MockPersistenceClient)
	c := NewController(userSchema(), client, nil, zerolog.Nop())
	src := sourceUser()

	var captured model.Payload
	client.On("Update", mock.Anything, model.ResourceUsers, "U001", mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(3).(model.Payload) }).
		Return(model.Entity{ID: "U001"}, nil).Once()

	require.NoError(t, c.Open(ModeEdit, &src))
	require.NoError(t, c.SetDefault("addresses", "A2"))

	records, err := c.Records("addresses")
	require.NoError(t, err)
	defaults := 0
	for _, r := range records {
		if r["is_default"] == true {
			defaults++
			assert.Equal(t, "A2", r["id"])
		}
	}
	assert.Equal(t, 1, defaults)

	_, err = c.Submit(context.Background())
	require.NoError(t, err)

	addresses := captured.Collections["addresses"]
	require.Len(t, addresses, 2)
	assert.Equal(t, false, addresses[0]["is_default"])
	assert.Equal(t, true, addresses[1]["is_default"])
	assert.Equal(t, true, src.Children["addresses"][0]["is_default"], "source entity untouched")
}

func TestSnapshot(t *testing.T) {
	c := NewController(userSchema(), new(MockPersistenceClient), nil, zerolog.Nop())
	assert.Equal(t, Snapshot{Resource: model.ResourceUsers, State: StateClosed}, c.Snapshot())

	src := sourceUser()
	require.NoError(t, c.Open(ModeView, &src))
	s := c.Snapshot()
	assert.Equal(t, StateOpen, s.State)
	assert.Equal(t, ModeView, s.Mode)
	assert.Equal(t, "U001", s.ID)
	assert.Len(t, s.Collections["addresses"], 2)

	s.Draft["username"] = "mutated"
	v, _ := c.Field("username")
	assert.Equal(t, "alice", v)
}
