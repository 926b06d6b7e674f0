package errcode

import "fmt"

// Error 业务错误：携带错误码，区分永久错误与可重试错误
type Error struct {
	Code      int
	Message   string
	Permanent bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// 错误码定义，按模块分段
const (
	CodeNameEndDigits        = 3610001
	CodeNameEnDuplicate      = 3610002
	CodeDataNameDuplicate    = 3610003
	CodeResultTableDuplicate = 3610004
	CodeNameDuplicate        = 3610005
	CodeNameEnInvalid        = 3610006

	CodeCollectorInactive   = 3620001
	CodeCollectorNotExist   = 3620002
	CodeCollectorIdNotExist = 3620003
	CodeDataIdMissing       = 3620004

	CodeIllegalTarget = 3630001

	CodeCreateOrUpdateSubscription = 3640001
	CodeSubscriptionStatistic      = 3640002
	CodeSubscriptionInfoNotFound   = 3640003

	CodePublicESClusterMissing = 3650001
	CodeResultTableNotExist    = 3650002

	CodeRegexInvalid = 3660001
	CodeRegexMatch   = 3660002

	CodeITSMApplying = 3670001
)

// 命名类错误，永久错误不重试

func ErrNameEndDigits() *Error {
	return &Error{Code: CodeNameEndDigits, Message: "采集名不能以6-8位数字结尾", Permanent: true}
}

func ErrNameEnDuplicate(nameEn string) *Error {
	return &Error{Code: CodeNameEnDuplicate, Message: fmt.Sprintf("采集英文名 %s 已存在", nameEn), Permanent: true}
}

func ErrDataNameDuplicate(dataName string) *Error {
	return &Error{Code: CodeDataNameDuplicate, Message: fmt.Sprintf("数据源名称 %s 已存在", dataName), Permanent: true}
}

func ErrResultTableDuplicate(tableID string) *Error {
	return &Error{Code: CodeResultTableDuplicate, Message: fmt.Sprintf("结果表 %s 已存在", tableID), Permanent: true}
}

func ErrNameDuplicate(name string) *Error {
	return &Error{Code: CodeNameDuplicate, Message: fmt.Sprintf("采集名称 %s 已存在", name), Permanent: true}
}

func ErrNameEnInvalid(nameEn string) *Error {
	return &Error{Code: CodeNameEnInvalid, Message: fmt.Sprintf("采集英文名 %s 只能包含字母、数字和下划线", nameEn), Permanent: true}
}

// 状态类错误

func ErrCollectorInactive() *Error {
	return &Error{Code: CodeCollectorInactive, Message: "采集项处于停用状态", Permanent: true}
}

func ErrCollectorNotExist() *Error {
	return &Error{Code: CodeCollectorNotExist, Message: "采集项不存在", Permanent: true}
}

func ErrCollectorIdNotExist(id int) *Error {
	return &Error{Code: CodeCollectorIdNotExist, Message: fmt.Sprintf("采集项ID %d 不存在", id), Permanent: true}
}

func ErrDataIdMissing() *Error {
	return &Error{Code: CodeDataIdMissing, Message: "采集项尚未分配数据源ID", Permanent: true}
}

// 目标校验错误

func ErrIllegalTarget(bkBizID int, items []string) *Error {
	return &Error{
		Code:      CodeIllegalTarget,
		Message:   fmt.Sprintf("业务 %d 下存在非法采集目标: %v", bkBizID, items),
		Permanent: true,
	}
}

// 远程编排错误，依赖下一次调和收敛

func ErrCreateOrUpdateSubscription(err error) *Error {
	return &Error{Code: CodeCreateOrUpdateSubscription, Message: fmt.Sprintf("创建或更新订阅失败: %v", err)}
}

func ErrSubscriptionStatistic(subscriptionID int, err error) *Error {
	return &Error{Code: CodeSubscriptionStatistic, Message: fmt.Sprintf("查询订阅 %d 状态失败: %v", subscriptionID, err)}
}

func ErrSubscriptionInfoNotFound() *Error {
	return &Error{Code: CodeSubscriptionInfoNotFound, Message: "订阅配置不存在"}
}

// 数据依赖错误

func ErrPublicESClusterMissing() *Error {
	return &Error{Code: CodePublicESClusterMissing, Message: "没有可用的公共ES集群", Permanent: true}
}

func ErrResultTableNotExist(tableID string) *Error {
	return &Error{Code: CodeResultTableNotExist, Message: fmt.Sprintf("结果表 %s 不存在", tableID), Permanent: true}
}

// 调试路径错误

func ErrRegexInvalid(err error) *Error {
	return &Error{Code: CodeRegexInvalid, Message: fmt.Sprintf("正则表达式非法: %v", err), Permanent: true}
}

func ErrRegexMatch() *Error {
	return &Error{Code: CodeRegexMatch, Message: "正则表达式未匹配到任何行", Permanent: true}
}

// ITSM 审批门禁

func ErrITSMApplying() *Error {
	return &Error{Code: CodeITSMApplying, Message: "采集项存在审批中的ITSM单据，不能启动", Permanent: true}
}
