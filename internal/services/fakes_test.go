package services

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
	"vhs_converter/internal/models"
	"vhs_converter/internal/redis"
	"vhs_converter/internal/repository"
	"vhs_converter/pkg/mailer"
	"vhs_converter/pkg/payment"
	"vhs_converter/pkg/sendcloud"

	"github.com/shopspring/decimal"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uint]*models.Order
	nextID uint
	// dupNumbers forces the next N creates to fail with a duplicate number.
	dupNumbers int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uint]*models.Order{}}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dupNumbers > 0 {
		r.dupNumbers--
		return repository.ErrDuplicate
	}
	for _, o := range r.orders {
		if o.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicate
		}
		if o.StripeSessionID != nil && order.StripeSessionID != nil && *o.StripeSessionID == *order.StripeSessionID {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Now()
	stored := *order
	r.orders[order.ID] = &stored
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *o
	return &out, nil
}

func (r *fakeOrderRepo) find(match func(o *models.Order) bool) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if match(o) {
			out := *o
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeOrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.find(func(o *models.Order) bool { return o.OrderNumber == orderNumber })
}

func (r *fakeOrderRepo) GetByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return r.find(func(o *models.Order) bool { return o.StripeSessionID != nil && *o.StripeSessionID == sessionID })
}

func (r *fakeOrderRepo) GetByUserID(ctx context.Context, userID uint) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			o.Status = v.(string)
		case "payment_status":
			o.PaymentStatus = v.(string)
		case "tracking_number":
			o.TrackingNumber = v.(string)
		case "label_url":
			o.LabelURL = v.(string)
		case "download_url":
			o.DownloadURL = v.(string)
		case "file_link":
			o.FileLink = v.(string)
		case "parcel_id":
			id := v.(int64)
			o.ParcelID = &id
		case "completed_at":
			t := v.(time.Time)
			o.CompletedAt = &t
		case "due_date":
			t := v.(time.Time)
			o.DueDate = &t
		}
	}
	return nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

type fakeNoteRepo struct {
	notes []models.OrderNote
}

func (r *fakeNoteRepo) Create(ctx context.Context, note *models.OrderNote) error {
	note.ID = uint(len(r.notes) + 1)
	r.notes = append(r.notes, *note)
	return nil
}

func (r *fakeNoteRepo) GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderNote, error) {
	var out []models.OrderNote
	for _, n := range r.notes {
		if n.OrderID == orderID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	messages []models.OrderMessage
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *models.OrderMessage) error {
	m.ID = uint(len(r.messages) + 1)
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeMessageRepo) GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderMessage, error) {
	var out []models.OrderMessage
	for _, m := range r.messages {
		if m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakePricingRepo struct {
	configs map[string]models.PricingConfig
	items   map[uint]*models.ProductAvailability
	nextID  uint
	reads   int
}

func newFakePricingRepo() *fakePricingRepo {
	r := &fakePricingRepo{configs: map[string]models.PricingConfig{}, items: map[uint]*models.ProductAvailability{}}
	for _, name := range []string{"vhs", "hi8", "minidv"} {
		r.add(models.TapeFormat, name, "")
	}
	r.add(models.OutputFormat, "usb", "")
	r.add(models.OutputFormat, "dvd", "")
	r.add(models.OutputFormat, "cloud", "")
	return r
}

func (r *fakePricingRepo) add(t models.ProductType, name, price string) *models.ProductAvailability {
	r.nextID++
	item := &models.ProductAvailability{ID: r.nextID, Type: t, Name: name, Label: name, IsActive: true}
	if price != "" {
		item.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	r.items[item.ID] = item
	return item
}

func (r *fakePricingRepo) GetConfigs(ctx context.Context) ([]models.PricingConfig, error) {
	r.reads++
	out := make([]models.PricingConfig, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakePricingRepo) UpsertConfig(ctx context.Context, cfg *models.PricingConfig) error {
	r.configs[cfg.Key] = *cfg
	return nil
}

func (r *fakePricingRepo) ListAvailability(ctx context.Context, activeOnly bool) ([]models.ProductAvailability, error) {
	var out []models.ProductAvailability
	for _, item := range r.items {
		if !activeOnly || item.IsActive {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePricingRepo) GetAvailability(ctx context.Context, id uint) (*models.ProductAvailability, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *item
	return &out, nil
}

func (r *fakePricingRepo) CreateAvailability(ctx context.Context, item *models.ProductAvailability) error {
	for _, existing := range r.items {
		if existing.Type == item.Type && existing.Name == item.Name {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	item.ID = r.nextID
	stored := *item
	r.items[item.ID] = &stored
	return nil
}

func (r *fakePricingRepo) UpdateAvailability(ctx context.Context, item *models.ProductAvailability) error {
	stored := *item
	r.items[item.ID] = &stored
	return nil
}

func (r *fakePricingRepo) DeleteAvailability(ctx context.Context, id uint) error {
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeUserRepo struct {
	users  map[uint]*models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]*models.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) PromoteToAdmin(ctx context.Context, id uint, passwordHash string, resetAt time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = string(models.RoleAdmin)
	u.PasswordHash = passwordHash
	u.CredentialsResetAt = &resetAt
	return nil
}

// fakeRedis stores JSON like the real client so round trips are realistic.
type fakeRedis struct {
	mu       sync.Mutex
	temp     map[string][]byte
	sessions map[string]*redis.SessionData
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{temp: map[string][]byte{}, sessions: map[string]*redis.SessionData{}}
}

func (f *fakeRedis) SetTempData(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.temp[key] = raw
	return nil
}

func (f *fakeRedis) GetTempData(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.temp[key]
	if !ok {
		return redis.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeRedis) DeleteTempData(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.temp, key)
	return nil
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.temp[key]
	return ok
}

func (f *fakeRedis) SetSession(ctx context.Context, sessionID string, data *redis.SessionData, ttl time.Duration) error {
	f.sessions[sessionID] = data
	return nil
}

func (f *fakeRedis) GetSession(ctx context.Context, sessionID string) (*redis.SessionData, error) {
	data, ok := f.sessions[sessionID]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return data, nil
}

func (f *fakeRedis) DeleteSession(ctx context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, email mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeShippingProvider struct {
	configured bool
	rateReq    sendcloud.RateRequest
	parcels    []sendcloud.ParcelRequest
	labelErr   error
}

func (p *fakeShippingProvider) Configured() bool { return p.configured }

func (p *fakeShippingProvider) GetRates(ctx context.Context, req sendcloud.RateRequest) ([]sendcloud.Rate, error) {
	p.rateReq = req
	return []sendcloud.Rate{
		{MethodID: 2, Carrier: "ups", Service: "Standard", Price: decimal.RequireFromString("9.95"), Handover: "dropoff"},
	}, nil
}

func (p *fakeShippingProvider) ServicePoints(ctx context.Context, country, postalCode string) ([]sendcloud.ServicePoint, error) {
	return []sendcloud.ServicePoint{{ID: 8, Name: "Corner shop", Country: country, PostalCode: postalCode}}, nil
}

func (p *fakeShippingProvider) CreateLabel(ctx context.Context, req sendcloud.ParcelRequest) (*sendcloud.Label, error) {
	if p.labelErr != nil {
		return nil, p.labelErr
	}
	p.parcels = append(p.parcels, req)
	return &sendcloud.Label{ParcelID: 555, TrackingNumber: "1Z999", LabelURL: "https://labels.example/555.pdf"}, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*payment.Session
	created  []payment.CheckoutRequest
	webhook  *payment.Session
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*payment.Session{}}
}

func (g *fakeGateway) CreateSession(ctx context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, req)
	s := &payment.Session{
		ID:          "cs_test_" + req.Reference[:8],
		URL:         "https://checkout.example/" + req.Reference,
		AmountTotal: payment.ToMinorUnits(req.Amount),
		Metadata:    req.Metadata,
	}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *fakeGateway) GetSession(ctx context.Context, id string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, io.EOF
	}
	out := *s
	return &out, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*payment.Session, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.webhook, nil
}

func (g *fakeGateway) markPaid(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].Paid = true
}

type fakeStore struct {
	uploads map[string]string
	err     error
}

func (s *fakeStore) Upload(ctx context.Context, folder, filename, contentType string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.uploads == nil {
		s.uploads = map[string]string{}
	}
	key := folder + "/" + filename
	s.uploads[key] = string(body)
	return "https://files.example/orders/" + key, nil
}
