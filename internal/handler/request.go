package handler

// Op 界面驱动发来的抽象操作请求类型
type Op int

const (
	OpCreateAccount Op = iota // 主菜单 → 开户
	OpLogin                   // 主菜单/开户成功页 → 登录
	OpExit                    // 退出进程（仅主菜单）
	OpSubmit                  // 提交当前界面的表单
	OpBack                    // 返回上一级
	OpCancel                  // 放弃当前待定操作
	OpCheckBalance
	OpUpdateInfo
	OpViewInfo
	OpDeposit
	OpWithdraw
	OpViewHistory
	OpDeleteAccount
	OpLogout
)

// Field 请求携带的字符串字段键
type Field string

const (
	FieldName       Field = "name"
	FieldFatherName Field = "father_name"
	FieldMobile     Field = "mobile"
	FieldAddress    Field = "address"
	FieldPassword   Field = "password"
	FieldAmount     Field = "amount"
	FieldAnswer     Field = "answer"
)

// Request 一次操作请求：目标操作 + 字符串形式的表单字段
type Request struct {
	Op     Op
	Fields map[Field]string
}

func (r Request) field(key Field) string {
	return r.Fields[key]
}

// NewRequest 构造不带字段的请求
func NewRequest(op Op) Request {
	return Request{Op: op}
}

// NewSubmit 构造提交请求
func NewSubmit(fields map[Field]string) Request {
	return Request{Op: OpSubmit, Fields: fields}
}
