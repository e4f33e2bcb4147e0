package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"moving-team/backend/internal/model"
	"moving-team/backend/internal/repository"
	pkgerrors "moving-team/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEstimates    = pkgerrors.New(pkgerrors.NotFound, "尚未收到任何报价")
	ErrCalendarNotAvailable = pkgerrors.New(pkgerrors.InvalidState, "报价确定后才能导出日程")
	ErrExportGenerateFail   = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 报价对比表导出为 Excel (.xlsx)，按价格升序
//   - 已确定的搬家导出为 iCalendar (.ics) 全天事件
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportEstimates 导出进行中申请收到的报价
	ExportEstimates(ctx context.Context, customerID string) (*bytes.Buffer, string, error)
	// MoveCalendar 导出 APPROVED / COMPLETED 申请的搬家日程
	MoveCalendar(ctx context.Context, customerID, requestID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportEstimates 报价对比表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "报价对比"
//   - 第 1 行：搬家日期与类型
//   - 表头：序号 | 司机 | 报价 | 状态 | 指定 | 备注 | 提交时间
//   - 已接受的报价整行高亮

func (s *exportService) ExportEstimates(ctx context.Context, customerID string) (*bytes.Buffer, string, error) {
	active, err := s.repo.EstimateRequest.GetActiveByCustomer(ctx, customerID, startOfDay(s.now(), s.loc))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNoActiveRequest
		}
		s.logger.Error("查询进行中的申请失败", zap.Error(err))
		return nil, "", err
	}

	list, err := s.repo.Estimate.ListByRequest(ctx, active.EstimateRequestID)
	if err != nil {
		s.logger.Error("查询报价失败", zap.Error(err))
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrExportNoEstimates
	}

	moveDate := active.MoveDate.In(s.loc).Format(dateLayout)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "报价对比"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	widths := []float64{6, 18, 14, 16, 8, 40, 20}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	acceptedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
	})
	priceStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s 搬家报价", moveDate, active.MoveType))
	f.MergeCell(sheetName, "A1", cell(colName(len(widths)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"序号", "司机", "报价", "状态", "指定", "备注", "提交时间"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i, e := range list {
		driver := e.DriverID
		if e.Driver != nil {
			driver = e.Driver.Nickname
		}
		designated := ""
		if e.IsDesignated {
			designated = "是"
		}
		f.SetCellValue(sheetName, cell("A", row), i+1)
		f.SetCellValue(sheetName, cell("B", row), driver)
		f.SetCellValue(sheetName, cell("C", row), e.Price)
		f.SetCellValue(sheetName, cell("D", row), string(e.Status))
		f.SetCellValue(sheetName, cell("E", row), designated)
		f.SetCellValue(sheetName, cell("F", row), e.Comment)
		f.SetCellValue(sheetName, cell("G", row), e.CreatedAt.In(s.loc).Format("2006-01-02 15:04"))
		f.SetCellStyle(sheetName, cell("C", row), cell("C", row), priceStyle)
		if e.Status == model.EstimateStatusAccepted {
			f.SetCellStyle(sheetName, cell("A", row), cell("B", row), acceptedStyle)
			f.SetCellStyle(sheetName, cell("D", row), cell("G", row), acceptedStyle)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("报价对比_%s.xlsx", moveDate)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// MoveCalendar 搬家日程
// ═══════════════════════════════════════════════════════════

func (s *exportService) MoveCalendar(ctx context.Context, customerID, requestID string) (*bytes.Buffer, string, error) {
	req, err := s.repo.EstimateRequest.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrRequestNotFound
		}
		s.logger.Error("查询报价申请失败", zap.Error(err))
		return nil, "", err
	}
	if req.CustomerID != customerID {
		return nil, "", ErrRequestNotFound
	}
	if req.Status != model.RequestStatusApproved && req.Status != model.RequestStatusCompleted {
		return nil, "", ErrCalendarNotAvailable
	}

	var accepted *model.Estimate
	list, err := s.repo.Estimate.ListByRequest(ctx, requestID)
	if err != nil {
		s.logger.Error("查询报价失败", zap.Error(err))
		return nil, "", err
	}
	for i := range list {
		if list[i].Status == model.EstimateStatusAccepted {
			accepted = &list[i]
			break
		}
	}

	moveDate := startOfDay(req.MoveDate, s.loc)
	now := s.now()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//moving-team//estimate//KO")

	ev := cal.AddEvent(req.EstimateRequestID + "@moving-team")
	ev.SetCreatedTime(now)
	ev.SetDtStampTime(now)
	ev.SetAllDayStartAt(moveDate)
	ev.SetAllDayEndAt(moveDate.AddDate(0, 0, 1))
	ev.SetSummary(fmt.Sprintf("搬家 (%s)", req.MoveType))
	if req.FromAddress != nil {
		ev.SetLocation(req.FromAddress.RoadAddress)
	}
	ev.SetDescription(calendarDescription(req, accepted))

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("move_%s.ics", moveDate.Format("20060102"))
	return buf, filename, nil
}

func calendarDescription(req *model.EstimateRequest, accepted *model.Estimate) string {
	var b bytes.Buffer
	if req.FromAddress != nil {
		fmt.Fprintf(&b, "出发: %s\n", req.FromAddress.RoadAddress)
	}
	if req.ToAddress != nil {
		fmt.Fprintf(&b, "到达: %s\n", req.ToAddress.RoadAddress)
	}
	if accepted != nil {
		driver := accepted.DriverID
		if accepted.Driver != nil {
			driver = accepted.Driver.Nickname
		}
		fmt.Fprintf(&b, "司机: %s\n报价: %d\n", driver, accepted.Price)
	}
	return b.String()
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
