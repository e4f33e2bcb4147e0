package service

import (
	"errors"
	"testing"

	"moving-team/backend/internal/dto"
	"moving-team/backend/internal/model"
	"moving-team/backend/internal/notify"
	pkgerrors "moving-team/backend/pkg/errors"
)

// ── 名额规则 ──

func TestQuotaPolicy_Decide(t *testing.T) {
	tests := []struct {
		name   string
		snap   responseSnapshot
		driver string
		want   QuotaDecision
	}{
		{
			name:   "公开申请有余量",
			snap:   responseSnapshot{status: model.RequestStatusPending, estimates: 3, rejections: 1},
			driver: "d9",
			want:   QuotaDecision{Allowed: true, Limit: 5, Used: 4},
		},
		{
			name:   "公开申请名额已满",
			snap:   responseSnapshot{status: model.RequestStatusPending, estimates: 4, rejections: 1},
			driver: "d9",
			want:   QuotaDecision{Limit: 5, Used: 5, Reason: QuotaReasonExhausted},
		},
		{
			name:   "指定模式上限为指定司机数",
			snap:   responseSnapshot{status: model.RequestStatusPending, designated: []string{"d1", "d2"}, estimates: 1},
			driver: "d2",
			want:   QuotaDecision{Allowed: true, Limit: 2, Used: 1},
		},
		{
			name:   "未被指定的司机",
			snap:   responseSnapshot{status: model.RequestStatusPending, designated: []string{"d1"}},
			driver: "d2",
			want:   QuotaDecision{Limit: 1, Used: 0, Reason: QuotaReasonNotDesignated},
		},
		{
			name:   "已回应过",
			snap:   responseSnapshot{status: model.RequestStatusPending, estimates: 1, hasEstimate: true},
			driver: "d1",
			want:   QuotaDecision{Limit: 5, Used: 1, Reason: QuotaReasonAlreadyResponded},
		},
		{
			name:   "申请已结束",
			snap:   responseSnapshot{status: model.RequestStatusApproved, estimates: 1},
			driver: "d1",
			want:   QuotaDecision{Limit: 5, Used: 1, Reason: QuotaReasonRequestClosed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testPolicy.Decide(&tt.snap, tt.driver)
			if got != tt.want {
				t.Errorf("期望 %+v，实际 %+v", tt.want, got)
			}
		})
	}
}

// ── 提交报价 ──

func TestSubmit_OpenQuotaOfFive(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")

	for _, d := range []string{"d1", "d2", "d3", "d4", "d5"} {
		f.mustSubmit(d, req, 500000)
	}

	_, err := f.estimates.Submit(f.ctx(), "d6", req, &dto.SubmitEstimateRequest{Price: 450000})
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("第 6 个报价期望 ErrQuotaExhausted，实际 %v", err)
	}
	if !pkgerrors.IsKind(err, pkgerrors.Conflict) {
		t.Error("应归类为 Conflict")
	}
	if n, _ := f.repo.Estimate.CountByRequest(f.ctx(), req); n != 5 {
		t.Errorf("报价数应保持 5，实际=%d", n)
	}
	if got := len(f.notifier.byKind(notify.KindEstimateProposed)); got != 5 {
		t.Errorf("期望 5 条报价通知，实际=%d", got)
	}
}

func TestSubmit_RejectionsConsumeQuota(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")

	f.mustSubmit("d1", req, 300000)
	f.mustSubmit("d2", req, 310000)
	for _, d := range []string{"d3", "d4", "d5"} {
		if _, err := f.estimates.Reject(f.ctx(), d, req, &dto.RejectRequestRequest{Reason: "일정 불가"}); err != nil {
			t.Fatalf("拒绝失败: %v", err)
		}
	}

	q, err := f.estimates.CanRespond(f.ctx(), "d6", req)
	if err != nil {
		t.Fatalf("CanRespond 失败: %v", err)
	}
	if q.Allowed || q.Used != 5 || q.Limit != 5 || q.Reason != QuotaReasonExhausted {
		t.Errorf("期望名额已满 5/5，实际 %+v", q)
	}
	if _, err := f.estimates.Submit(f.ctx(), "d6", req, &dto.SubmitEstimateRequest{Price: 1}); !errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("期望 ErrQuotaExhausted，实际 %v", err)
	}
	// 公开申请不会因拒绝而结束
	if f.requestStatus(req) != model.RequestStatusPending {
		t.Errorf("公开申请应保持 PENDING，实际=%s", f.requestStatus(req))
	}
}

func TestSubmit_PriceCheckedBeforeQuota(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	for _, d := range []string{"d1", "d2", "d3", "d4", "d5"} {
		f.mustSubmit(d, req, 500000)
	}

	for _, price := range []int64{0, -1} {
		_, err := f.estimates.Submit(f.ctx(), "d6", req, &dto.SubmitEstimateRequest{Price: price})
		if !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("price=%d 期望 ErrInvalidPrice（先于名额检查），实际 %v", price, err)
		}
	}
	// 即使申请不存在，金额错误也先返回
	if _, err := f.estimates.Submit(f.ctx(), "d6", "missing", &dto.SubmitEstimateRequest{Price: 0}); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("期望 ErrInvalidPrice，实际 %v", err)
	}
}

func TestSubmit_Duplicate(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	f.mustSubmit("d1", req, 300000)

	_, err := f.estimates.Submit(f.ctx(), "d1", req, &dto.SubmitEstimateRequest{Price: 280000})
	if !errors.Is(err, ErrDuplicateEstimate) {
		t.Fatalf("期望 ErrDuplicateEstimate，实际 %v", err)
	}
}

func TestSubmit_AfterRejectingIsConflict(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	if _, err := f.estimates.Reject(f.ctx(), "d1", req, &dto.RejectRequestRequest{Reason: "거리"}); err != nil {
		t.Fatalf("拒绝失败: %v", err)
	}

	_, err := f.estimates.Submit(f.ctx(), "d1", req, &dto.SubmitEstimateRequest{Price: 280000})
	if !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("期望 ErrAlreadyResponded，实际 %v", err)
	}
}

func TestSubmit_NotFoundAndClosed(t *testing.T) {
	f := newFixture(t)

	if _, err := f.estimates.Submit(f.ctx(), "d1", "missing", &dto.SubmitEstimateRequest{Price: 1}); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("期望 ErrRequestNotFound，实际 %v", err)
	}

	req := f.mustCreateRequest("c1")
	f.db.requests[req].Status = model.RequestStatusApproved
	_, err := f.estimates.Submit(f.ctx(), "d1", req, &dto.SubmitEstimateRequest{Price: 1})
	if !errors.Is(err, ErrRequestNotPending) || !pkgerrors.IsKind(err, pkgerrors.InvalidState) {
		t.Errorf("期望 InvalidState ErrRequestNotPending，实际 %v", err)
	}
}

func TestSubmit_DesignatedSnapshot(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	f.mustDesignate("c1", "d1")

	id := f.mustSubmit("d1", req, 300000)
	if !f.db.estimates[id].IsDesignated {
		t.Error("指定模式下提交的报价应标记 is_designated")
	}

	_, err := f.estimates.Submit(f.ctx(), "d2", req, &dto.SubmitEstimateRequest{Price: 280000})
	if !errors.Is(err, ErrDriverNotDesignated) {
		t.Fatalf("未被指定的司机期望 ErrDriverNotDesignated，实际 %v", err)
	}
}

func TestCanRespond_MatchesWritePath(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")

	q, err := f.estimates.CanRespond(f.ctx(), "d1", req)
	if err != nil || !q.Allowed || q.Limit != 5 || q.Used != 0 {
		t.Fatalf("期望可回应 0/5，实际 %+v, %v", q, err)
	}

	f.mustSubmit("d1", req, 300000)
	q, _ = f.estimates.CanRespond(f.ctx(), "d1", req)
	if q.Allowed || q.Reason != QuotaReasonAlreadyResponded {
		t.Errorf("已报价司机期望 already_responded，实际 %+v", q)
	}

	if _, err := f.estimates.CanRespond(f.ctx(), "d1", "missing"); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("期望 ErrRequestNotFound，实际 %v", err)
	}
}

// ── 拒绝 ──

func TestReject_AllDesignatedDeclined(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	for _, d := range []string{"d1", "d2", "d3"} {
		f.mustDesignate("c1", d)
	}

	for i, d := range []string{"d1", "d2"} {
		resp, err := f.estimates.Reject(f.ctx(), d, req, &dto.RejectRequestRequest{Reason: "일정 불가"})
		if err != nil {
			t.Fatalf("第 %d 次拒绝失败: %v", i+1, err)
		}
		if resp.RequestStatus != string(model.RequestStatusPending) {
			t.Errorf("尚有指定司机未回应时应保持 PENDING，实际=%s", resp.RequestStatus)
		}
	}

	resp, err := f.estimates.Reject(f.ctx(), "d3", req, &dto.RejectRequestRequest{Reason: "일정 불가"})
	if err != nil {
		t.Fatalf("第 3 次拒绝失败: %v", err)
	}
	if resp.RequestStatus != string(model.RequestStatusRejected) || f.requestStatus(req) != model.RequestStatusRejected {
		t.Fatalf("全部指定司机拒绝后应为 REJECTED，实际=%s", f.requestStatus(req))
	}
	events := f.notifier.byKind(notify.KindRequestRejected)
	if len(events) != 1 || events[0].Recipients[0] != "c1" {
		t.Errorf("应通知客户申请被拒绝，实际 %+v", events)
	}

	// REJECTED 为终态，之后的回应一律按状态错误拒绝
	_, err = f.estimates.Reject(f.ctx(), "d1", req, &dto.RejectRequestRequest{Reason: "재시도"})
	if !errors.Is(err, ErrRequestNotPending) || !pkgerrors.IsKind(err, pkgerrors.InvalidState) {
		t.Errorf("REJECTED 后再次拒绝期望 InvalidState ErrRequestNotPending，实际 %v", err)
	}
	_, err = f.estimates.Submit(f.ctx(), "d2", req, &dto.SubmitEstimateRequest{Price: 300000})
	if !errors.Is(err, ErrRequestNotPending) || !pkgerrors.IsKind(err, pkgerrors.InvalidState) {
		t.Errorf("REJECTED 后报价期望 InvalidState ErrRequestNotPending，实际 %v", err)
	}
	if f.requestStatus(req) != model.RequestStatusRejected {
		t.Errorf("状态应保持 REJECTED，实际=%s", f.requestStatus(req))
	}
	if got := len(f.notifier.byKind(notify.KindRequestRejected)); got != 1 {
		t.Errorf("不应重复通知，实际=%d", got)
	}

	// 申请不再是进行中，客户可重新创建
	f.mustCreateRequest("c1")
}

func TestReject_OnlyDesignatedDriversCountTowardRejected(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	for _, d := range []string{"d1", "d2", "d3"} {
		f.mustDesignate("c1", d)
	}
	// 非指定司机留下的拒绝记录
	if err := f.repo.Rejection.Create(f.ctx(), &model.DriverEstimateRejection{
		DriverID: "d5", EstimateRequestID: req, Reason: "이전 응답",
	}); err != nil {
		t.Fatalf("写入拒绝记录失败: %v", err)
	}

	for _, d := range []string{"d1", "d2"} {
		resp, err := f.estimates.Reject(f.ctx(), d, req, &dto.RejectRequestRequest{Reason: "일정 불가"})
		if err != nil {
			t.Fatalf("%s 拒绝失败: %v", d, err)
		}
		if resp.RequestStatus != string(model.RequestStatusPending) {
			t.Fatalf("d3 尚未拒绝，不应变为 REJECTED，实际=%s", resp.RequestStatus)
		}
	}
	if f.requestStatus(req) != model.RequestStatusPending {
		t.Errorf("期望 PENDING，实际=%s", f.requestStatus(req))
	}
	if got := len(f.notifier.byKind(notify.KindRequestRejected)); got != 0 {
		t.Errorf("不应发送申请被拒绝通知，实际=%d", got)
	}
}

func TestReject_Duplicate(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	if _, err := f.estimates.Reject(f.ctx(), "d1", req, &dto.RejectRequestRequest{Reason: "x"}); err != nil {
		t.Fatalf("首次拒绝失败: %v", err)
	}

	_, err := f.estimates.Reject(f.ctx(), "d1", req, &dto.RejectRequestRequest{Reason: "x"})
	if !errors.Is(err, ErrDuplicateRejection) || !pkgerrors.IsKind(err, pkgerrors.Conflict) {
		t.Fatalf("期望 Conflict ErrDuplicateRejection，实际 %v", err)
	}
}

func TestReject_DesignatedWithOneProposalStaysPending(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	f.mustDesignate("c1", "d1")
	f.mustDesignate("c1", "d2")

	f.mustSubmit("d1", req, 300000)
	resp, err := f.estimates.Reject(f.ctx(), "d2", req, &dto.RejectRequestRequest{Reason: "x"})
	if err != nil {
		t.Fatalf("拒绝失败: %v", err)
	}
	if resp.RequestStatus != string(model.RequestStatusPending) {
		t.Errorf("仍有报价时不应自动拒绝，实际=%s", resp.RequestStatus)
	}
}

// ── 撤回 ──

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	id := f.mustSubmit("d1", req, 300000)

	if _, err := f.estimates.Withdraw(f.ctx(), "d2", id); !errors.Is(err, ErrEstimateNotFound) {
		t.Errorf("他人撤回期望 ErrEstimateNotFound，实际 %v", err)
	}

	resp, err := f.estimates.Withdraw(f.ctx(), "d1", id)
	if err != nil {
		t.Fatalf("撤回失败: %v", err)
	}
	if resp.Status != string(model.EstimateStatusRejected) {
		t.Errorf("期望 REJECTED，实际=%s", resp.Status)
	}

	if _, err := f.estimates.Withdraw(f.ctx(), "d1", id); !errors.Is(err, ErrEstimateNotProposed) {
		t.Errorf("重复撤回期望 ErrEstimateNotProposed，实际 %v", err)
	}

	// 撤回不释放名额
	q, _ := f.estimates.CanRespond(f.ctx(), "d2", req)
	if q.Used != 1 {
		t.Errorf("撤回后 used 仍应为 1，实际=%d", q.Used)
	}
}

// ── 查询 ──

func TestListReceivedAndMine(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreateRequest("c1")
	f.mustSubmit("d1", req, 320000)
	f.mustSubmit("d2", req, 280000)

	list, err := f.estimates.ListReceived(f.ctx(), "c1")
	if err != nil {
		t.Fatalf("ListReceived 失败: %v", err)
	}
	if len(list) != 2 || list[0].Price != 280000 {
		t.Errorf("期望按价格升序 2 条，实际 %+v", list)
	}
	if list[0].DriverNickname == "" {
		t.Error("应带出司机昵称")
	}

	if _, err := f.estimates.ListReceived(f.ctx(), "c2"); !errors.Is(err, ErrNoActiveRequest) {
		t.Errorf("期望 ErrNoActiveRequest，实际 %v", err)
	}

	mine, total, err := f.estimates.ListMine(f.ctx(), "d1", &dto.PaginationRequest{})
	if err != nil || total != 1 || len(mine) != 1 {
		t.Errorf("期望司机 d1 有 1 条报价，实际 %d/%d, %v", len(mine), total, err)
	}
}
