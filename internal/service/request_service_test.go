package service

import (
	"errors"
	"testing"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/model"
	"moving-team/backend/internal/notify"
	pkgerrors "moving-team/backend/pkg/errors"
)

func TestCreateRequest_Success(t *testing.T) {
	f := newFixture(t)

	resp, err := f.requests.Create(f.ctx(), "c1", &dto.CreateEstimateRequestRequest{
		MoveType:      "HOME",
		MoveDate:      f.date(3),
		FromAddressID: "a-seoul",
		ToAddressID:   "a-busan",
	})
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if resp.Status != string(model.RequestStatusPending) {
		t.Errorf("期望 PENDING，实际=%s", resp.Status)
	}
	if resp.MoveDate != f.date(3) {
		t.Errorf("期望搬家日 %s，实际=%s", f.date(3), resp.MoveDate)
	}

	events := f.notifier.byKind(notify.KindRequestCreated)
	if len(events) != 1 {
		t.Fatalf("期望 1 条创建通知，实际=%d", len(events))
	}
	got := map[string]bool{}
	for _, id := range events[0].Recipients {
		got[id] = true
	}
	// 出发地 SEOUL、目的地 BUSAN：d1 d2 d4 d5 d6 服务首尔，d3 服务釜山，d7 不相关
	for _, want := range []string{"c1", "d1", "d2", "d3", "d4", "d5", "d6"} {
		if !got[want] {
			t.Errorf("收件人应包含 %s", want)
		}
	}
	if got["d7"] {
		t.Error("服务区域不匹配的司机不应收到通知")
	}
}

func TestCreateRequest_TodayIsAllowed(t *testing.T) {
	f := newFixture(t)

	_, err := f.requests.Create(f.ctx(), "c1", &dto.CreateEstimateRequestRequest{
		MoveType: "SMALL", MoveDate: f.date(0), FromAddressID: "a-seoul", ToAddressID: "a-seoul2",
	})
	if err != nil {
		t.Fatalf("当天搬家应允许: %v", err)
	}
}

func TestCreateRequest_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  dto.CreateEstimateRequestRequest
		want error
	}{
		{"未知搬家类型", dto.CreateEstimateRequestRequest{MoveType: "CASTLE", MoveDate: f.date(1), FromAddressID: "a-seoul", ToAddressID: "a-busan"}, ErrInvalidMoveType},
		{"同一地址", dto.CreateEstimateRequestRequest{MoveType: "HOME", MoveDate: f.date(1), FromAddressID: "a-seoul", ToAddressID: "a-seoul"}, ErrSameAddress},
		{"日期格式错误", dto.CreateEstimateRequestRequest{MoveType: "HOME", MoveDate: "03/20/2026", FromAddressID: "a-seoul", ToAddressID: "a-busan"}, ErrInvalidMoveDate},
		{"过去的日期", dto.CreateEstimateRequestRequest{MoveType: "HOME", MoveDate: f.date(-1), FromAddressID: "a-seoul", ToAddressID: "a-busan"}, ErrMoveDateInPast},
		{"地址不存在", dto.CreateEstimateRequestRequest{MoveType: "HOME", MoveDate: f.date(1), FromAddressID: "a-seoul", ToAddressID: "a-nowhere"}, ErrAddressNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.requests.Create(f.ctx(), "c1", &tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际 %v", tt.want, err)
			}
		})
	}
	if len(f.db.requests) != 0 {
		t.Error("校验失败时不应写入申请")
	}
}

func TestCreateRequest_SecondActiveConflicts(t *testing.T) {
	f := newFixture(t)
	f.mustCreateRequest("c1")

	_, err := f.requests.Create(f.ctx(), "c1", &dto.CreateEstimateRequestRequest{
		MoveType: "OFFICE", MoveDate: f.date(5), FromAddressID: "a-seoul", ToAddressID: "a-busan",
	})
	if !errors.Is(err, ErrActiveRequestExists) {
		t.Fatalf("期望 ErrActiveRequestExists，实际 %v", err)
	}
	if !pkgerrors.IsKind(err, pkgerrors.Conflict) {
		t.Error("应归类为 Conflict")
	}

	// 其他客户不受影响
	f.mustCreateRequest("c2")
}

func TestCreateRequest_UnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.requests.Create(f.ctx(), "ghost", &dto.CreateEstimateRequestRequest{
		MoveType: "HOME", MoveDate: f.date(1), FromAddressID: "a-seoul", ToAddressID: "a-busan",
	})
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("期望 ErrCustomerNotFound，实际 %v", err)
	}
}

func TestGetActiveRequest(t *testing.T) {
	f := newFixture(t)

	if _, err := f.requests.GetActive(f.ctx(), "c1"); !errors.Is(err, ErrNoActiveRequest) {
		t.Fatalf("无申请时期望 ErrNoActiveRequest，实际 %v", err)
	}

	id := f.mustCreateRequest("c1")
	resp, err := f.requests.GetActive(f.ctx(), "c1")
	if err != nil || resp.ID != id {
		t.Fatalf("期望返回 %s，实际 %+v, %v", id, resp, err)
	}
}

func TestGetActiveRequest_ApprovedPastMoveDateIsInactive(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreateRequest("c1")
	f.db.requests[id].Status = model.RequestStatusApproved

	// 搬家日当天仍为进行中
	f.now = f.now.AddDate(0, 0, 3)
	if _, err := f.requests.GetActive(f.ctx(), "c1"); err != nil {
		t.Fatalf("搬家日当天应仍为进行中: %v", err)
	}

	// 次日不再是进行中，可创建新申请
	f.now = f.now.AddDate(0, 0, 1)
	if _, err := f.requests.GetActive(f.ctx(), "c1"); !errors.Is(err, ErrNoActiveRequest) {
		t.Fatalf("搬家日已过的 APPROVED 申请不应为进行中，实际 %v", err)
	}
	f.mustCreateRequest("c1")
}

func TestGetActiveRequest_RejectedIsInactive(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreateRequest("c1")
	f.db.requests[id].Status = model.RequestStatusRejected

	if _, err := f.requests.GetActive(f.ctx(), "c1"); !errors.Is(err, ErrNoActiveRequest) {
		t.Fatalf("REJECTED 申请不应为进行中，实际 %v", err)
	}
}

func TestCancelActive(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreateRequest("c1")
	est := f.mustSubmit("d1", id, 300000)

	if err := f.requests.CancelActive(f.ctx(), "c1"); err != nil {
		t.Fatalf("取消应成功: %v", err)
	}
	if _, err := f.requests.GetActive(f.ctx(), "c1"); !errors.Is(err, ErrNoActiveRequest) {
		t.Error("取消后不应再有进行中的申请")
	}
	// 已取消申请下的报价不可再接受
	if _, err := f.acceptance.Accept(f.ctx(), "c1", est); !errors.Is(err, ErrEstimateNotFound) {
		t.Errorf("期望 ErrEstimateNotFound，实际 %v", err)
	}
}

func TestCancelActive_ApprovedNotAllowed(t *testing.T) {
	f := newFixture(t)
	id := f.mustCreateRequest("c1")
	f.db.requests[id].Status = model.RequestStatusApproved

	if err := f.requests.CancelActive(f.ctx(), "c1"); !errors.Is(err, ErrCancelNotAllowed) {
		t.Fatalf("期望 ErrCancelNotAllowed，实际 %v", err)
	}
}
