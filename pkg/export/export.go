// Package export 生成排班与约束的 Excel 工作簿
//
// 布局：每名人员一行，每天一列。工作簿以字节返回，由调用方决定写文件或写 HTTP 响应。
package export

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/paiban/nurseshift/pkg/calendar"
	"github.com/paiban/nurseshift/pkg/model"
)

var (
	ErrNoStaff      = errors.New("export: no staff")
	ErrGenerateFail = errors.New("export: generate workbook failed")
)

// 固定列：姓名、类别
const leadingCols = 2

// ScheduleData 排班导出数据
type ScheduleData struct {
	Year     int
	Month    int
	Staff    []*model.Staff
	Entries  []*model.ScheduleEntry
	Stats    map[int64]*model.StaffMonthStat
	Unfilled []model.UnfilledSlot
}

// ConstraintData 约束导出数据
type ConstraintData struct {
	Year        int
	Month       int
	Staff       []*model.Staff
	Constraints []model.ConstraintEntry
}

// ScheduleFilename 建议文件名
func ScheduleFilename(year, month int) string {
	return fmt.Sprintf("schedule_%04d_%02d.xlsx", year, month)
}

// ConstraintFilename 建议文件名
func ConstraintFilename(year, month int) string {
	return fmt.Sprintf("constraints_%04d_%02d.xlsx", year, month)
}

// ScheduleWorkbook 生成排班工作簿
//
// 单元格：同日多个班次以 "/" 连接，锁定记录加 "*" 后缀；表尾为工时统计列。
// 有未填补需求时额外生成 "Unfilled" 工作表。
func ScheduleWorkbook(data *ScheduleData) ([]byte, error) {
	if len(data.Staff) == 0 {
		return nil, ErrNoStaff
	}
	cal, err := calendar.NewMonth(data.Year, data.Month)
	if err != nil {
		return nil, err
	}

	cells := make(map[model.StaffDay][]string)
	for _, e := range sortedEntries(data.Entries) {
		code := e.ShiftCode
		if e.Locked {
			code += "*"
		}
		cells[e.Key()] = append(cells[e.Key()], code)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Schedule"
	w, err := newSheet(f, sheet, cal)
	if err != nil {
		return nil, err
	}

	statCols := []string{"Target h", "Actual h", "Delta h", "Bank h"}
	w.header(fmt.Sprintf("Schedule %04d-%02d", data.Year, data.Month), statCols)

	row := 3
	for _, s := range displayOrder(data.Staff) {
		w.staffRow(row, s)
		for day := 1; day <= cal.Days(); day++ {
			if codes := cells[model.StaffDay{StaffID: s.ID, Day: day}]; len(codes) > 0 {
				w.set(leadingCols+day, row, strings.Join(codes, "/"))
			}
		}

		stat := model.NewStaffStat(s, data.Stats[s.ID])
		col := leadingCols + cal.Days() + 1
		if stat.TargetMinutes != nil {
			w.set(col, row, stat.TargetHours.InexactFloat64())
		}
		w.set(col+1, row, stat.ActualHours.InexactFloat64())
		w.set(col+2, row, stat.DeltaHours.InexactFloat64())
		w.set(col+3, row, stat.BankHours.InexactFloat64())
		row++
	}
	if w.err != nil {
		return nil, w.err
	}

	if len(data.Unfilled) > 0 {
		if err := unfilledSheet(f, data.Unfilled); err != nil {
			return nil, err
		}
	}
	return write(f)
}

// ConstraintWorkbook 生成约束工作簿，单元格为约束代码
func ConstraintWorkbook(data *ConstraintData) ([]byte, error) {
	if len(data.Staff) == 0 {
		return nil, ErrNoStaff
	}
	cal, err := calendar.NewMonth(data.Year, data.Month)
	if err != nil {
		return nil, err
	}

	codes := make(map[model.StaffDay]string, len(data.Constraints))
	for _, c := range data.Constraints {
		codes[model.StaffDay{StaffID: c.StaffID, Day: c.Day}] = c.Code
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Constraints"
	w, err := newSheet(f, sheet, cal)
	if err != nil {
		return nil, err
	}
	w.header(fmt.Sprintf("Constraints %04d-%02d", data.Year, data.Month), nil)

	row := 3
	for _, s := range displayOrder(data.Staff) {
		w.staffRow(row, s)
		for day := 1; day <= cal.Days(); day++ {
			if code := codes[model.StaffDay{StaffID: s.ID, Day: day}]; code != "" {
				w.set(leadingCols+day, row, code)
			}
		}
		row++
	}
	if w.err != nil {
		return nil, w.err
	}
	return write(f)
}

// sheetWriter 记录第一个写入错误，避免每个单元格都检查
type sheetWriter struct {
	f       *excelize.File
	sheet   string
	cal     *calendar.Month
	weekend int
	err     error
}

func newSheet(f *excelize.File, sheet string, cal *calendar.Month) (*sheetWriter, error) {
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	weekend, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f, sheet: sheet, cal: cal, weekend: weekend}
	w.check(f.SetColWidth(sheet, "A", "A", 24))
	w.check(f.SetColWidth(sheet, "B", "B", 22))
	first, last := colName(leadingCols+1), colName(leadingCols+cal.Days())
	w.check(f.SetColWidth(sheet, first, last, 6))
	return w, w.err
}

func (w *sheetWriter) check(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *sheetWriter) set(col, row int, value interface{}) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.check(err)
		return
	}
	w.check(w.f.SetCellValue(w.sheet, cell, value))
}

// header 写标题行与表头（第 1、2 行），周末列着色
func (w *sheetWriter) header(title string, extra []string) {
	headerStyle, err := w.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	w.check(err)

	lastCol := leadingCols + w.cal.Days() + len(extra)
	w.set(1, 1, title)
	w.check(w.f.MergeCell(w.sheet, "A1", colName(lastCol)+"1"))
	w.check(w.f.SetCellStyle(w.sheet, "A1", "A1", headerStyle))

	w.set(1, 2, "Name")
	w.set(2, 2, "Category")
	for day := 1; day <= w.cal.Days(); day++ {
		w.set(leadingCols+day, 2, day)
	}
	for i, name := range extra {
		w.set(leadingCols+w.cal.Days()+1+i, 2, name)
	}
	w.check(w.f.SetCellStyle(w.sheet, "A2", colName(lastCol)+"2", headerStyle))
	w.check(w.f.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      leadingCols,
		YSplit:      2,
		TopLeftCell: colName(leadingCols+1) + "3",
		ActivePane:  "bottomRight",
	}))
}

func (w *sheetWriter) staffRow(row int, s *model.Staff) {
	w.set(1, row, s.Name)
	w.set(2, row, string(s.Category))
	for day := 1; day <= w.cal.Days(); day++ {
		if !w.cal.IsWeekend(day) {
			continue
		}
		cell := fmt.Sprintf("%s%d", colName(leadingCols+day), row)
		w.check(w.f.SetCellStyle(w.sheet, cell, cell, w.weekend))
	}
}

func unfilledSheet(f *excelize.File, unfilled []model.UnfilledSlot) error {
	sheet := "Unfilled"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Day", "Service", "Shift", "Reason"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, u := range unfilled {
		row := []interface{}{u.Day, u.ServiceCode, u.ShiftCode, u.Reason}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "D", "D", 48)
}

func write(f *excelize.File) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerateFail, err)
	}
	return buf.Bytes(), nil
}

func displayOrder(staff []*model.Staff) []*model.Staff {
	out := make([]*model.Staff, len(staff))
	copy(out, staff)
	model.SortStaffForDisplay(out)
	return out
}

func sortedEntries(entries []*model.ScheduleEntry) []*model.ScheduleEntry {
	out := make([]*model.ScheduleEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].ServiceCode < out[j].ServiceCode
	})
	return out
}

// colName 1 起始的列号转列名
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx)
	return name
}
