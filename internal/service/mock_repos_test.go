package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"moving-team/backend/internal/model"
	"moving-team/backend/internal/repository"
)

// memDB 所有 Mock Repository 共享的内存数据，保证计数与状态在各仓储之间一致
type memDB struct {
	mu  sync.Mutex
	seq int

	customers     map[string]*model.Customer
	drivers       map[string]*model.Driver
	addresses     map[string]*model.Address
	requests      map[string]*model.EstimateRequest
	estimates     map[string]*model.Estimate
	designated    []model.DesignatedDriver
	rejections    []model.DriverEstimateRejection
	notifications []model.Notification
}

func newMemDB() *memDB {
	return &memDB{
		customers: make(map[string]*model.Customer),
		drivers:   make(map[string]*model.Driver),
		addresses: make(map[string]*model.Address),
		requests:  make(map[string]*model.EstimateRequest),
		estimates: make(map[string]*model.Estimate),
	}
}

func (m *memDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// newMockRepository 组装未绑定数据库的 Repository 聚合，Transaction 直接执行回调
func newMockRepository(db *memDB) *repository.Repository {
	return &repository.Repository{
		Customer:         &mockCustomerRepo{db},
		Driver:           &mockDriverRepo{db},
		Address:          &mockAddressRepo{db},
		EstimateRequest:  &mockEstimateRequestRepo{db},
		Estimate:         &mockEstimateRepo{db},
		DesignatedDriver: &mockDesignatedDriverRepo{db},
		Rejection:        &mockRejectionRepo{db},
		Notification:     &mockNotificationRepo{db},
	}
}

// ── Mock CustomerRepository ──

type mockCustomerRepo struct{ db *memDB }

func (m *mockCustomerRepo) GetByID(_ context.Context, id string) (*model.Customer, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if c, ok := m.db.customers[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCustomerRepo) LockByID(ctx context.Context, id string) (*model.Customer, error) {
	return m.GetByID(ctx, id)
}

// ── Mock DriverRepository ──

type mockDriverRepo struct{ db *memDB }

func (m *mockDriverRepo) GetByID(_ context.Context, id string) (*model.Driver, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if d, ok := m.db.drivers[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDriverRepo) ListIDsByRegions(_ context.Context, regions []string) ([]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var ids []string
	for id, d := range m.db.drivers {
		for _, r := range regions {
			if d.ServiceRegions.Contains(r) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Mock AddressRepository ──

type mockAddressRepo struct{ db *memDB }

func (m *mockAddressRepo) GetByID(_ context.Context, id string) (*model.Address, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if a, ok := m.db.addresses[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock EstimateRequestRepository ──

type mockEstimateRequestRepo struct{ db *memDB }

func (m *mockEstimateRequestRepo) Create(_ context.Context, req *model.EstimateRequest) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if req.EstimateRequestID == "" {
		req.EstimateRequestID = m.db.nextID("req")
	}
	req.CreatedAt = time.Now()
	m.db.requests[req.EstimateRequestID] = req
	return nil
}

func (m *mockEstimateRequestRepo) get(id string) (*model.EstimateRequest, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r, ok := m.db.requests[id]
	if !ok || r.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (m *mockEstimateRequestRepo) GetByID(_ context.Context, id string) (*model.EstimateRequest, error) {
	return m.get(id)
}

func (m *mockEstimateRequestRepo) LockByID(_ context.Context, id string) (*model.EstimateRequest, error) {
	return m.get(id)
}

func (m *mockEstimateRequestRepo) GetActiveByCustomer(_ context.Context, customerID string, today time.Time) (*model.EstimateRequest, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.requests {
		if r.CustomerID == customerID && !r.DeletedAt.Valid && r.IsActive(today) {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEstimateRequestRepo) LockActiveByCustomer(ctx context.Context, customerID string, today time.Time) (*model.EstimateRequest, error) {
	return m.GetActiveByCustomer(ctx, customerID, today)
}

func (m *mockEstimateRequestRepo) UpdateStatus(_ context.Context, id string, from, to model.RequestStatus) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r, ok := m.db.requests[id]
	if !ok || r.DeletedAt.Valid || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (m *mockEstimateRequestRepo) SoftDelete(_ context.Context, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if r, ok := m.db.requests[id]; ok {
		r.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}
	return nil
}

func (m *mockEstimateRequestRepo) LockOverdueApproved(_ context.Context, before time.Time, limit int) ([]model.EstimateRequest, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var list []model.EstimateRequest
	for _, r := range m.db.requests {
		if r.Status == model.RequestStatusApproved && !r.DeletedAt.Valid && r.MoveDate.Before(before) {
			list = append(list, *r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].MoveDate.Before(list[j].MoveDate) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *mockEstimateRequestRepo) CompleteByIDs(_ context.Context, ids []string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, id := range ids {
		if r, ok := m.db.requests[id]; ok && r.Status == model.RequestStatusApproved {
			r.Status = model.RequestStatusCompleted
			n++
		}
	}
	return n, nil
}

// ── Mock EstimateRepository ──

type mockEstimateRepo struct{ db *memDB }

func (m *mockEstimateRepo) Create(_ context.Context, e *model.Estimate) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, x := range m.db.estimates {
		if x.DriverID == e.DriverID && x.EstimateRequestID == e.EstimateRequestID && !x.DeletedAt.Valid {
			return gorm.ErrDuplicatedKey
		}
	}
	if e.EstimateID == "" {
		e.EstimateID = m.db.nextID("est")
	}
	e.CreatedAt = time.Now()
	m.db.estimates[e.EstimateID] = e
	return nil
}

func (m *mockEstimateRepo) GetByID(_ context.Context, id string) (*model.Estimate, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.estimates[id]
	if !ok || e.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEstimateRepo) CountByRequest(_ context.Context, requestID string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, e := range m.db.estimates {
		if e.EstimateRequestID == requestID && !e.DeletedAt.Valid {
			n++
		}
	}
	return n, nil
}

func (m *mockEstimateRepo) ExistsByDriverAndRequest(_ context.Context, driverID, requestID string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, e := range m.db.estimates {
		if e.DriverID == driverID && e.EstimateRequestID == requestID && !e.DeletedAt.Valid {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEstimateRepo) ListByRequest(_ context.Context, requestID string) ([]model.Estimate, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var list []model.Estimate
	for _, e := range m.db.estimates {
		if e.EstimateRequestID == requestID && !e.DeletedAt.Valid {
			cp := *e
			cp.Driver = m.db.drivers[e.DriverID]
			list = append(list, cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Price < list[j].Price })
	return list, nil
}

func (m *mockEstimateRepo) ListByDriver(_ context.Context, driverID string, offset, limit int) ([]model.Estimate, int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var list []model.Estimate
	for _, e := range m.db.estimates {
		if e.DriverID == driverID && !e.DeletedAt.Valid {
			list = append(list, *e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EstimateID < list[j].EstimateID })
	total := int64(len(list))
	if offset >= len(list) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

func (m *mockEstimateRepo) UpdateStatus(_ context.Context, id string, from, to model.EstimateStatus) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.estimates[id]
	if !ok || e.DeletedAt.Valid || e.Status != from {
		return false, nil
	}
	e.Status = to
	return true, nil
}

func (m *mockEstimateRepo) AutoRejectSiblings(_ context.Context, requestID, acceptedID string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, e := range m.db.estimates {
		if e.EstimateRequestID == requestID && e.EstimateID != acceptedID && e.Status == model.EstimateStatusProposed {
			e.Status = model.EstimateStatusAutoRejected
			n++
		}
	}
	return n, nil
}

// ── Mock DesignatedDriverRepository ──

type mockDesignatedDriverRepo struct{ db *memDB }

func (m *mockDesignatedDriverRepo) Create(_ context.Context, d *model.DesignatedDriver) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, x := range m.db.designated {
		if x.EstimateRequestID == d.EstimateRequestID && x.DriverID == d.DriverID {
			return gorm.ErrDuplicatedKey
		}
	}
	d.DesignatedDriverID = m.db.nextID("dd")
	m.db.designated = append(m.db.designated, *d)
	return nil
}

func (m *mockDesignatedDriverRepo) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	ids, _ := m.ListDriverIDsByRequest(ctx, requestID)
	return int64(len(ids)), nil
}

func (m *mockDesignatedDriverRepo) ListDriverIDsByRequest(_ context.Context, requestID string) ([]string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var ids []string
	for _, x := range m.db.designated {
		if x.EstimateRequestID == requestID {
			ids = append(ids, x.DriverID)
		}
	}
	return ids, nil
}

// ── Mock RejectionRepository ──

type mockRejectionRepo struct{ db *memDB }

func (m *mockRejectionRepo) Create(_ context.Context, r *model.DriverEstimateRejection) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, x := range m.db.rejections {
		if x.EstimateRequestID == r.EstimateRequestID && x.DriverID == r.DriverID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.RejectionID = m.db.nextID("rej")
	m.db.rejections = append(m.db.rejections, *r)
	return nil
}

func (m *mockRejectionRepo) CountByRequest(_ context.Context, requestID string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, x := range m.db.rejections {
		if x.EstimateRequestID == requestID {
			n++
		}
	}
	return n, nil
}

func (m *mockRejectionRepo) CountByRequestAndDrivers(_ context.Context, requestID string, driverIDs []string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, x := range m.db.rejections {
		if x.EstimateRequestID != requestID {
			continue
		}
		for _, id := range driverIDs {
			if x.DriverID == id {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *mockRejectionRepo) ExistsByDriverAndRequest(_ context.Context, driverID, requestID string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, x := range m.db.rejections {
		if x.EstimateRequestID == requestID && x.DriverID == driverID {
			return true, nil
		}
	}
	return false, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ db *memDB }

func (m *mockNotificationRepo) BatchCreate(_ context.Context, list []model.Notification) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, n := range list {
		n.NotificationID = m.db.nextID("ntf")
		m.db.notifications = append(m.db.notifications, n)
	}
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.Notification, int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var list []model.Notification
	for _, n := range m.db.notifications {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	total := int64(len(list))
	if offset >= len(list) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for i := range m.db.notifications {
		n := &m.db.notifications[i]
		if n.NotificationID == id && n.UserID == userID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}
