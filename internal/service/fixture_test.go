package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/model"
	"moving-team/backend/internal/notify"
	"moving-team/backend/internal/repository"
)

// recordingNotifier 记录所有事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) byKind(kind notify.Kind) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// fixture 固定时钟（首尔时区 2026-03-10 09:00）下的完整业务环境
type fixture struct {
	t        *testing.T
	db       *memDB
	repo     *repository.Repository
	notifier *recordingNotifier
	loc      *time.Location
	now      time.Time

	requests    EstimateRequestService
	designation DesignationService
	estimates   EstimateService
	acceptance  AcceptanceService
}

var testPolicy = QuotaPolicy{OpenQuota: 5, MaxDesignated: 3}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*3600)
	}

	db := newMemDB()
	repo := newMockRepository(db)
	n := &recordingNotifier{}
	f := &fixture{
		t:        t,
		db:       db,
		repo:     repo,
		notifier: n,
		loc:      loc,
		now:      time.Date(2026, 3, 10, 9, 0, 0, 0, loc),
	}
	clock := func() time.Time { return f.now }
	dir := NewRepoDirectory(repo)
	logger := zap.NewNop()

	rs := NewEstimateRequestService(repo, dir, dir, n, loc, logger).(*estimateRequestService)
	rs.now = clock
	ds := NewDesignationService(repo, testPolicy, n, loc, logger).(*designationService)
	ds.now = clock
	es := NewEstimateService(repo, testPolicy, n, loc, logger).(*estimateService)
	es.now = clock

	f.requests = rs
	f.designation = ds
	f.estimates = es
	f.acceptance = NewAcceptanceService(repo, n, logger)

	db.customers["c1"] = &model.Customer{CustomerID: "c1", Name: "김고객"}
	db.customers["c2"] = &model.Customer{CustomerID: "c2", Name: "이고객"}
	db.addresses["a-seoul"] = &model.Address{AddressID: "a-seoul", RoadAddress: "서울 강남구 테헤란로 1", Region: "SEOUL", District: "강남구"}
	db.addresses["a-busan"] = &model.Address{AddressID: "a-busan", RoadAddress: "부산 해운대구 우동 1", Region: "BUSAN", District: "해운대구"}
	db.addresses["a-seoul2"] = &model.Address{AddressID: "a-seoul2", RoadAddress: "서울 마포구 양화로 1", Region: "SEOUL", District: "마포구"}
	for _, d := range []struct {
		id      string
		regions []string
	}{
		{"d1", []string{"SEOUL"}},
		{"d2", []string{"SEOUL", "GYEONGGI"}},
		{"d3", []string{"BUSAN"}},
		{"d4", []string{"SEOUL"}},
		{"d5", []string{"SEOUL"}},
		{"d6", []string{"SEOUL"}},
		{"d7", []string{"JEJU"}},
	} {
		db.drivers[d.id] = &model.Driver{DriverID: d.id, Nickname: "기사" + d.id, ServiceRegions: d.regions}
	}
	return f
}

func (f *fixture) ctx() context.Context { return context.Background() }

func (f *fixture) date(offsetDays int) string {
	return f.now.AddDate(0, 0, offsetDays).Format(dateLayout)
}

// mustCreateRequest 为客户创建一个 3 天后的申请
func (f *fixture) mustCreateRequest(customerID string) string {
	f.t.Helper()
	resp, err := f.requests.Create(f.ctx(), customerID, &dto.CreateEstimateRequestRequest{
		MoveType:      "HOME",
		MoveDate:      f.date(3),
		FromAddressID: "a-seoul",
		ToAddressID:   "a-busan",
	})
	if err != nil {
		f.t.Fatalf("创建申请失败: %v", err)
	}
	return resp.ID
}

func (f *fixture) mustDesignate(customerID, driverID string) {
	f.t.Helper()
	if _, err := f.designation.Designate(f.ctx(), customerID, &dto.DesignateDriverRequest{DriverID: driverID}); err != nil {
		f.t.Fatalf("指定司机 %s 失败: %v", driverID, err)
	}
}

func (f *fixture) mustSubmit(driverID, requestID string, price int64) string {
	f.t.Helper()
	resp, err := f.estimates.Submit(f.ctx(), driverID, requestID, &dto.SubmitEstimateRequest{Price: price})
	if err != nil {
		f.t.Fatalf("司机 %s 报价失败: %v", driverID, err)
	}
	return resp.ID
}

func (f *fixture) requestStatus(id string) model.RequestStatus {
	return f.db.requests[id].Status
}

func (f *fixture) estimateStatus(id string) model.EstimateStatus {
	return f.db.estimates[id].Status
}
