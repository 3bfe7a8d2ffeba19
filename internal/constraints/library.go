// Package constraints 描述资格规则链、惩罚权重与约束代码，供前端展示
package constraints

import (
	"sort"

	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint/builtin"
)

// RuleDefinition 资格规则定义
type RuleDefinition struct {
	Name        string `json:"name"`
	Type        string `json:"type"`  // hard 硬规则, soft 软规则
	Order       int    `json:"order"` // 判定顺序
	Description string `json:"description"`
}

// PenaltyDefinition 惩罚权重定义
type PenaltyDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     int    `json:"default"`
	Current     int    `json:"current"`
}

// CodeDefinition 约束代码定义
type CodeDefinition struct {
	Code        string `json:"code"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Library 约束库
type Library struct {
	Year      int                 `json:"year"`
	Month     int                 `json:"month"`
	Rules     []RuleDefinition    `json:"rules"`
	Penalties []PenaltyDefinition `json:"penalties"`
	Codes     []CodeDefinition    `json:"codes"`
}

var ruleDescriptions = map[constraint.Type]string{
	constraint.TypeCoordinator:         "协调员不参与自动排班",
	constraint.TypeLockedDay:           "当日已有锁定记录的人员不再分配",
	constraint.TypePermittedShift:      "只分配人员允许的班次代码",
	constraint.TypeBlockingCode:        "休假、请假、节假日当天不可分配",
	constraint.TypeUnknownShift:        "班次代码必须存在于班次目录",
	constraint.TypeNightEligible:       "夜班只分配给可上夜班的人员",
	constraint.TypeForbiddenType:       "约束中禁止的班次类别不可分配",
	constraint.TypePartialAvailability: "仅可上指定类别时，其他类别不可分配",
	constraint.TypeCategoryOverlay:     "兼职人员无可用声明时默认不可用",
	constraint.TypeRequestOff:          "休息申请；月度配置决定是否为硬规则",
}

// GetLibrary 按月度配置生成约束库
func GetLibrary(cfg *model.MonthConfig) *Library {
	lib := &Library{Year: cfg.Year, Month: cfg.Month}

	rules := builtin.NewDefaultManager(cfg).GetAll()
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Order() < rules[j].Order() })
	for _, r := range rules {
		lib.Rules = append(lib.Rules, RuleDefinition{
			Name:        string(r.Type()),
			Type:        string(r.Category()),
			Order:       r.Order(),
			Description: ruleDescriptions[r.Type()],
		})
	}

	def, cur := model.DefaultPenaltyWeights(), cfg.Penalties
	lib.Penalties = []PenaltyDefinition{
		{"unfilled", "每个未填补班位", def.Unfilled, cur.Unfilled},
		{"pedido", "违反休息申请（软规则时）", def.Request, cur.Request},
		{"hours_target", "偏离月度目标工时（每小时）", def.HoursTarget, cur.HoursTarget},
		{"bank_balance", "加剧工时余额失衡", def.BankBalance, cur.BankBalance},
		{"night_sequence", "连续夜班", def.NightSequence, cur.NightSequence},
		{"rest_followup", "夜班后休息日次日上班", def.RestFollowup, cur.RestFollowup},
		{"shift_balance", "班次类别分布不均", def.ShiftBalance, cur.ShiftBalance},
		{"double_shift_service", "同日双班跨服务", def.DoubleShiftService, cur.DoubleShiftService},
	}

	for _, code := range []string{
		model.CodeVacation, model.CodeLeave, model.CodeHoliday,
		model.CodeAvailable, model.CodeUnavailable,
		model.CodeRequestOff, model.CodeRequestRest, model.CodeRequestRestOff,
	} {
		lib.Codes = append(lib.Codes, CodeDefinition{
			Code:        code,
			Kind:        model.ParseAvailability(code).Kind.String(),
			Description: codeDescriptions[code],
		})
	}
	return lib
}

var codeDescriptions = map[string]string{
	model.CodeVacation:       "休假",
	model.CodeLeave:          "请假",
	model.CodeHoliday:        "节假日",
	model.CodeAvailable:      "可上任意班次（兼职人员需要显式声明）",
	model.CodeUnavailable:    "全天不可用",
	model.CodeRequestOff:     "申请休息",
	model.CodeRequestRest:    "申请休息",
	model.CodeRequestRestOff: "申请休息",
}
