package handler

import (
	"errors"
	"fmt"
	"log"

	"bankms/internal/config"
	"bankms/internal/model"
	"bankms/internal/repository"
	"bankms/internal/service"
	"bankms/pkg/response"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
)

// ============================================================================
// 会话/操作状态机
// ============================================================================

// State 当前界面状态
type State int

const (
	StateMainMenu State = iota
	StateCreatingAccount
	StateLoggingIn
	StateUserMenu
	StateCheckingBalance
	StateUpdatingInfo
	StateDepositing
	StateDepositSucceeded
	StateWithdrawing
	StateVerifyingWithdrawal
	StateWithdrawSucceeded
	StateWithdrawFailed
	StateViewingHistory
	StateViewingInfo
	StateLoggedOut
	StateConfirmingDelete
)

var stateNames = map[State]string{
	StateMainMenu:            "MainMenu",
	StateCreatingAccount:     "CreatingAccount",
	StateLoggingIn:           "LoggingIn",
	StateUserMenu:            "UserMenu",
	StateCheckingBalance:     "CheckingBalance",
	StateUpdatingInfo:        "UpdatingInfo",
	StateDepositing:          "Depositing",
	StateDepositSucceeded:    "DepositSucceeded",
	StateWithdrawing:         "Withdrawing",
	StateVerifyingWithdrawal: "VerifyingWithdrawal",
	StateWithdrawSucceeded:   "WithdrawSucceeded",
	StateWithdrawFailed:      "WithdrawFailed",
	StateViewingHistory:      "ViewingHistory",
	StateViewingInfo:         "ViewingInfo",
	StateLoggedOut:           "LoggedOut",
	StateConfirmingDelete:    "ConfirmingDelete",
}

func (s State) String() string {
	return stateNames[s]
}

// 面向用户的提示文本，沿用历史界面措辞
const (
	msgFieldsInvalid      = "All fields must be filled correctly!"
	msgMobileExists       = "Mobile number already exists!"
	msgUnableToSave       = "Unable to save account!"
	msgUnableToSaveChange = "Unable to save changes!"
	msgNoAccounts         = "No accounts found!"
	msgInvalidCredentials = "Invalid credentials!"
	msgEnterValidAmount   = "Enter a valid amount!"
	msgInsufficientFunds  = "Insufficient amount! please enter a valid amount."
	msgNoFundsAvailable   = "No funds available in this account."
	msgIncorrectAnswer    = "Incorrect answer!"
	msgIncorrectPassword  = "Incorrect password!"
	msgAccountDeleted     = "Account deleted."
)

// ============================================================================
// 数据负载，随 Result.Data 交给界面驱动渲染
// ============================================================================

// AccountCreatedData 开户成功：新发放的账号
type AccountCreatedData struct {
	AccountNumber int
}

// BalanceData 余额查询
type BalanceData struct {
	Balance decimal.Decimal
}

// ProfileData 账户资料只读视图
type ProfileData struct {
	Name          string
	FatherName    string
	MobileNumber  string
	Address       string
	AccountNumber int
	Balance       decimal.Decimal
}

// ProfileFormData 资料更新表单的预填值（取自当前会话）
type ProfileFormData struct {
	Name       string
	FatherName string
	Address    string
	Password   string
}

// ChallengeData 大额取款验证：展示给用户的问题文本
type ChallengeData struct {
	Question string
}

// AmountData 存取款成功界面携带的金额
type AmountData struct {
	Amount decimal.Decimal
}

// HistoryData 流水列表（最旧在前）
type HistoryData struct {
	Transactions []model.Transaction
}

// ============================================================================
// 状态机
// ============================================================================

// Machine 会话/操作状态机
// 一次只推进一个操作请求到完成，单逻辑执行者，无内部并发
//
// 【关键点】
// 1. 会话为单槽位：mo.Option 显式建模"至多一个活动会话"
// 2. 校验类/未找到类错误就地恢复：停留在当前状态并给出提示
// 3. 大额取款先走安全问题验证，余额在验证通过前不被触碰；
//    直接路径与验证路径共用同一个 commitWithdrawal
// 4. 提示类界面（成功/失败/登出）由 tick 计数器驱动自动返回
type Machine struct {
	accountSvc *service.AccountService
	authSvc    *service.AuthService
	display    config.DisplayConfig

	state   State
	session mo.Option[model.Account]

	// CreatingAccount 的成功子模式：停留展示新账号直到用户主动去登录
	accountCreated bool
	createdNumber  int

	// 待定的大额取款
	pendingWithdraw  decimal.Decimal
	pendingChallenge mo.Option[service.Challenge]

	ticksLeft int
	done      bool
}

func NewMachine(accountSvc *service.AccountService, authSvc *service.AuthService, display config.DisplayConfig) *Machine {
	return &Machine{
		accountSvc: accountSvc,
		authSvc:    authSvc,
		display:    display,
		state:      StateMainMenu,
		session:    mo.None[model.Account](),
	}
}

// State 当前状态
func (m *Machine) State() State {
	return m.state
}

// Session 当前会话（未登录时为 None）
func (m *Machine) Session() mo.Option[model.Account] {
	return m.session
}

// Done 用户是否已请求退出进程
func (m *Machine) Done() bool {
	return m.done
}

// TicksLeft 提示类界面剩余的 tick 数
func (m *Machine) TicksLeft() int {
	return m.ticksLeft
}

// CreatedNumber 开户成功子模式下展示的新账号
func (m *Machine) CreatedNumber() int {
	return m.createdNumber
}

// AccountCreated 是否处于开户成功子模式
func (m *Machine) AccountCreated() bool {
	return m.accountCreated
}

// Handle 推进一个操作请求，返回交给界面驱动渲染的结果
// 未在当前状态定义的操作一律原地停留（空结果）
func (m *Machine) Handle(req Request) *response.Result {
	switch m.state {
	case StateMainMenu:
		return m.handleMainMenu(req)
	case StateCreatingAccount:
		return m.handleCreatingAccount(req)
	case StateLoggingIn:
		return m.handleLoggingIn(req)
	case StateUserMenu:
		return m.handleUserMenu(req)
	case StateCheckingBalance, StateViewingInfo, StateViewingHistory:
		return m.handleReadOnly(req)
	case StateUpdatingInfo:
		return m.handleUpdatingInfo(req)
	case StateDepositing:
		return m.handleDepositing(req)
	case StateWithdrawing:
		return m.handleWithdrawing(req)
	case StateVerifyingWithdrawal:
		return m.handleVerifyingWithdrawal(req)
	case StateConfirmingDelete:
		return m.handleConfirmingDelete(req)
	default:
		// 计时界面（DepositSucceeded 等）不响应请求，等 Tick 自动返回
		return response.OK()
	}
}

// Tick 推进一个时钟节拍，驱动计时界面的自动返回
func (m *Machine) Tick() {
	switch m.state {
	case StateDepositSucceeded, StateWithdrawSucceeded, StateWithdrawFailed:
		m.ticksLeft--
		if m.ticksLeft <= 0 {
			m.state = StateUserMenu
		}
	case StateLoggedOut:
		m.ticksLeft--
		if m.ticksLeft <= 0 {
			m.session = mo.None[model.Account]()
			m.state = StateMainMenu
		}
	}
}

// ============================================================================
// 各状态的转移处理
// ============================================================================

func (m *Machine) handleMainMenu(req Request) *response.Result {
	switch req.Op {
	case OpCreateAccount:
		m.state = StateCreatingAccount
		m.accountCreated = false
	case OpLogin:
		m.state = StateLoggingIn
	case OpExit:
		m.done = true
	}
	return response.OK()
}

func (m *Machine) handleCreatingAccount(req Request) *response.Result {
	if m.accountCreated {
		// 成功子模式：展示新账号，等用户主动去登录
		switch req.Op {
		case OpLogin:
			m.accountCreated = false
			m.state = StateLoggingIn
		case OpBack:
			m.accountCreated = false
			m.state = StateMainMenu
		}
		return response.OK()
	}

	switch req.Op {
	case OpSubmit:
		acc, err := m.accountSvc.CreateAccount(service.CreateAccountInput{
			Name:         req.field(FieldName),
			FatherName:   req.field(FieldFatherName),
			MobileNumber: req.field(FieldMobile),
			Address:      req.field(FieldAddress),
			Password:     req.field(FieldPassword),
		})
		switch {
		case errors.Is(err, service.ErrValidation):
			return response.Error(response.CodeParamError, msgFieldsInvalid)
		case errors.Is(err, repository.ErrMobileExists):
			return response.Error(response.CodeMobileExists, msgMobileExists)
		case err != nil:
			log.Printf("开户写入失败: %v", err)
			return response.Error(response.CodeServerError, msgUnableToSave)
		}
		m.accountCreated = true
		m.createdNumber = acc.AccountNumber
		return &response.Result{
			Code:    response.CodeSuccess,
			Message: fmt.Sprintf("Account created! Number: %d", acc.AccountNumber),
			Data:    AccountCreatedData{AccountNumber: acc.AccountNumber},
		}
	case OpBack:
		m.state = StateMainMenu
	}
	return response.OK()
}

func (m *Machine) handleLoggingIn(req Request) *response.Result {
	switch req.Op {
	case OpSubmit:
		acc, err := m.authSvc.Authenticate(req.field(FieldMobile), req.field(FieldPassword))
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
			return response.Error(response.CodeNotFound, msgInvalidCredentials)
		case err != nil:
			log.Printf("读取账户存储失败: %v", err)
			return response.Error(response.CodeServerError, msgNoAccounts)
		}
		// 新会话顶替任何旧会话，全程只存在一个
		m.session = mo.Some(acc)
		m.state = StateUserMenu
	case OpBack:
		m.state = StateMainMenu
	}
	return response.OK()
}

func (m *Machine) handleUserMenu(req Request) *response.Result {
	sess, ok := m.session.Get()
	if !ok {
		// 无会话却停在用户菜单属于驱动误用，回到主菜单兜底
		m.state = StateMainMenu
		return response.OK()
	}

	switch req.Op {
	case OpCheckBalance:
		m.state = StateCheckingBalance
		return response.Success(BalanceData{Balance: sess.Balance})
	case OpUpdateInfo:
		// 用当前会话数据预填表单
		m.state = StateUpdatingInfo
		return response.Success(ProfileFormData{
			Name:       sess.Name,
			FatherName: sess.FatherName,
			Address:    sess.Address,
			Password:   sess.Password,
		})
	case OpViewInfo:
		m.state = StateViewingInfo
		return response.Success(ProfileData{
			Name:          sess.Name,
			FatherName:    sess.FatherName,
			MobileNumber:  sess.MobileNumber,
			Address:       sess.Address,
			AccountNumber: sess.AccountNumber,
			Balance:       sess.Balance,
		})
	case OpDeposit:
		m.state = StateDepositing
	case OpWithdraw:
		m.state = StateWithdrawing
	case OpViewHistory:
		txs, err := m.accountSvc.History(sess.AccountNumber)
		if err != nil {
			// 流水只读失败不阻断浏览，按无记录展示
			log.Printf("读取流水失败（账号 %d）: %v", sess.AccountNumber, err)
			txs = nil
		}
		m.state = StateViewingHistory
		return response.Success(HistoryData{Transactions: txs})
	case OpDeleteAccount:
		m.state = StateConfirmingDelete
	case OpLogout:
		m.state = StateLoggedOut
		m.ticksLeft = m.display.LogoutTicks
	}
	return response.OK()
}

// handleReadOnly 只读展示界面：仅支持返回
func (m *Machine) handleReadOnly(req Request) *response.Result {
	if req.Op == OpBack {
		m.state = StateUserMenu
	}
	return response.OK()
}

func (m *Machine) handleUpdatingInfo(req Request) *response.Result {
	sess, ok := m.session.Get()
	if !ok {
		m.state = StateMainMenu
		return response.OK()
	}

	switch req.Op {
	case OpSubmit:
		// 沿用历史行为：不校验字段，允许提交空值
		err := m.accountSvc.UpdateProfile(&sess,
			req.field(FieldName), req.field(FieldFatherName),
			req.field(FieldAddress), req.field(FieldPassword))
		if err != nil {
			log.Printf("更新资料写入失败（账号 %d）: %v", sess.AccountNumber, err)
			return response.Error(response.CodeServerError, msgUnableToSaveChange)
		}
		m.session = mo.Some(sess)
		m.state = StateUserMenu
	case OpBack:
		m.state = StateUserMenu
	}
	return response.OK()
}

func (m *Machine) handleDepositing(req Request) *response.Result {
	sess, ok := m.session.Get()
	if !ok {
		m.state = StateMainMenu
		return response.OK()
	}

	switch req.Op {
	case OpSubmit:
		amount, err := decimal.NewFromString(req.field(FieldAmount))
		if err != nil {
			return response.Error(response.CodeInvalidAmount, msgEnterValidAmount)
		}
		tx, err := m.accountSvc.Deposit(&sess, amount)
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			return response.Error(response.CodeInvalidAmount, msgEnterValidAmount)
		case err != nil:
			log.Printf("存款写入失败（账号 %d）: %v", sess.AccountNumber, err)
			return response.Error(response.CodeServerError, msgUnableToSaveChange)
		}
		m.session = mo.Some(sess)
		m.state = StateDepositSucceeded
		m.ticksLeft = m.display.SuccessTicks
		return response.Success(AmountData{Amount: tx.Amount})
	case OpBack:
		m.state = StateUserMenu
	}
	return response.OK()
}

func (m *Machine) handleWithdrawing(req Request) *response.Result {
	sess, ok := m.session.Get()
	if !ok {
		m.state = StateMainMenu
		return response.OK()
	}

	switch req.Op {
	case OpSubmit:
		if sess.Balance.LessThanOrEqual(decimal.Zero) {
			// 零余额账户只提供返回操作
			return response.Error(response.CodeInvalidAmount, msgNoFundsAvailable)
		}
		amount, err := decimal.NewFromString(req.field(FieldAmount))
		if err != nil || amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(sess.Balance) {
			return response.Error(response.CodeInvalidAmount, msgInsufficientFunds)
		}
		if m.authSvc.RequiresVerification(amount) {
			// 余额在验证通过之前不被触碰
			ch := m.authSvc.IssueChallenge(sess)
			m.pendingWithdraw = amount
			m.pendingChallenge = mo.Some(ch)
			m.state = StateVerifyingWithdrawal
			return response.Success(ChallengeData{Question: ch.Question})
		}
		return m.commitWithdrawal(amount)
	case OpBack:
		m.state = StateUserMenu
	}
	return response.OK()
}

func (m *Machine) handleVerifyingWithdrawal(req Request) *response.Result {
	switch req.Op {
	case OpSubmit:
		ch, ok := m.pendingChallenge.Get()
		if !ok {
			m.clearPending()
			m.state = StateWithdrawing
			return response.OK()
		}
		if !m.authSvc.VerifyChallenge(ch, req.field(FieldAnswer)) {
			// 验证失败：丢弃待定金额与问题，不产生任何余额变更与流水
			m.clearPending()
			m.state = StateWithdrawFailed
			m.ticksLeft = m.display.SuccessTicks
			return response.Error(response.CodeChallengeFailed, msgIncorrectAnswer)
		}
		return m.commitWithdrawal(m.pendingWithdraw)
	case OpCancel, OpBack:
		// 取消只是丢弃内存中的待定状态，存储不被触碰，会话保留
		m.clearPending()
		m.state = StateUserMenu
	}
	return response.OK()
}

// commitWithdrawal 取款提交：直接路径与验证通过路径共用
func (m *Machine) commitWithdrawal(amount decimal.Decimal) *response.Result {
	sess, ok := m.session.Get()
	if !ok {
		m.state = StateMainMenu
		return response.OK()
	}
	tx, err := m.accountSvc.Withdraw(&sess, amount)
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return response.Error(response.CodeInvalidAmount, msgInsufficientFunds)
	case err != nil:
		log.Printf("取款写入失败（账号 %d）: %v", sess.AccountNumber, err)
		return response.Error(response.CodeServerError, msgUnableToSaveChange)
	}
	m.session = mo.Some(sess)
	m.clearPending()
	m.state = StateWithdrawSucceeded
	m.ticksLeft = m.display.SuccessTicks
	return response.Success(AmountData{Amount: tx.Amount})
}

func (m *Machine) handleConfirmingDelete(req Request) *response.Result {
	sess, ok := m.session.Get()
	if !ok {
		m.state = StateMainMenu
		return response.OK()
	}

	switch req.Op {
	case OpSubmit:
		if req.field(FieldPassword) != sess.Password {
			return response.Error(response.CodePasswordMismatch, msgIncorrectPassword)
		}
		if err := m.accountSvc.DeleteAccount(sess.AccountNumber); err != nil {
			log.Printf("销户写入失败（账号 %d）: %v", sess.AccountNumber, err)
			return response.Error(response.CodeServerError, msgUnableToSaveChange)
		}
		m.session = mo.None[model.Account]()
		m.state = StateMainMenu
		return &response.Result{Code: response.CodeSuccess, Message: msgAccountDeleted}
	case OpCancel, OpBack:
		m.state = StateUserMenu
	}
	return response.OK()
}

func (m *Machine) clearPending() {
	m.pendingWithdraw = decimal.Zero
	m.pendingChallenge = mo.None[service.Challenge]()
}
