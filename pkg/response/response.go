package response

// 结果码，跨界面驱动边界返回
const (
	CodeSuccess     = 0
	CodeParamError  = 400
	CodeNotFound    = 404
	CodeServerError = 500
)

const (
	CodeMobileExists     = 1001
	CodeInvalidAmount    = 1002
	CodeChallengeFailed  = 1003
	CodePasswordMismatch = 1004
)

// Result 返回给界面驱动的结果载荷
// Message 为面向用户的提示文本（可为空），Data 为可选数据负载
// （余额、账号、流水列表、安全问题等），由驱动负责渲染
type Result struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Success(data any) *Result {
	return &Result{Code: CodeSuccess, Message: "", Data: data}
}

func OK() *Result {
	return &Result{Code: CodeSuccess}
}

func Error(code int, message string) *Result {
	return &Result{Code: code, Message: message}
}
