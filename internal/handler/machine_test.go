package handler

import (
	"testing"

	"bankms/internal/config"
	"bankms/internal/model"
	"bankms/internal/repository"
	"bankms/internal/service"
	"bankms/pkg/response"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试用 tick 预算压到最小，自动返回只需两拍
var testDisplay = config.DisplayConfig{SuccessTicks: 2, LogoutTicks: 2, MessageTicks: 2}

type fixture struct {
	machine *Machine
	txRepo  *repository.TransactionRepository
}

// newFixture 组装完整栈：文件存储 + 业务服务 + 状态机
// 问题下标固定为 0（父亲姓名），验证路径可确定性测试
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	accountRepo := repository.NewAccountRepository(dir, "accounts.txt")
	txRepo := repository.NewTransactionRepository(dir)
	accountSvc := service.NewAccountService(accountRepo, txRepo)
	authSvc := service.NewAuthService(accountRepo, decimal.NewFromInt(50000),
		service.WithQuestionPicker(func(int) int { return 0 }))
	return &fixture{
		machine: NewMachine(accountSvc, authSvc, testDisplay),
		txRepo:  txRepo,
	}
}

func createFields() map[Field]string {
	return map[Field]string{
		FieldName:       "Ali Khan",
		FieldFatherName: "Hassan Khan",
		FieldMobile:     "01234567890",
		FieldAddress:    "Street 12 Lahore",
		FieldPassword:   "pw1",
	}
}

// signup 走完开户 → 登录，留在用户菜单
func (f *fixture) signup(t *testing.T) {
	t.Helper()
	m := f.machine
	m.Handle(NewRequest(OpCreateAccount))
	res := m.Handle(NewSubmit(createFields()))
	require.Equal(t, response.CodeSuccess, res.Code)
	m.Handle(NewRequest(OpLogin))
	res = m.Handle(NewSubmit(map[Field]string{FieldMobile: "01234567890", FieldPassword: "pw1"}))
	require.Equal(t, response.CodeSuccess, res.Code)
	require.Equal(t, StateUserMenu, m.State())
}

func (f *fixture) balance(t *testing.T) string {
	t.Helper()
	sess, ok := f.machine.Session().Get()
	require.True(t, ok)
	return sess.Balance.StringFixed(2)
}

// runTicks 推进计时界面直到离开给定状态
func (f *fixture) runTicks(t *testing.T, from State) {
	t.Helper()
	require.Equal(t, from, f.machine.State())
	for i := 0; f.machine.State() == from; i++ {
		require.Less(t, i, 100, "timed state did not elapse")
		f.machine.Tick()
	}
}

func TestInitialState(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, StateMainMenu, f.machine.State())
	assert.True(t, f.machine.Session().IsAbsent())
}

func TestExitFromMainMenu(t *testing.T) {
	f := newFixture(t)
	f.machine.Handle(NewRequest(OpExit))
	assert.True(t, f.machine.Done())
}

// 开户：校验失败与重复手机号都原地停留并给出提示
func TestCreateAccountErrorsStayInState(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	m.Handle(NewRequest(OpCreateAccount))

	fields := createFields()
	fields[FieldMobile] = "123"
	res := m.Handle(NewSubmit(fields))
	assert.Equal(t, "All fields must be filled correctly!", res.Message)
	assert.Equal(t, StateCreatingAccount, m.State())
	assert.False(t, m.AccountCreated())

	res = m.Handle(NewSubmit(createFields()))
	require.Equal(t, response.CodeSuccess, res.Code)
	assert.Equal(t, AccountCreatedData{AccountNumber: 2500}, res.Data)
	assert.True(t, m.AccountCreated())
	assert.Equal(t, 2500, m.CreatedNumber())
}

// 第二次用同一手机号开户失败，存储仍然只有一条记录
func TestCreateDuplicateMobileSurfacesMessage(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine
	// 回到主菜单重新开户（会话被新开户流程旁置，不影响存储）
	m.Handle(NewRequest(OpLogout))
	f.runTicks(t, StateLoggedOut)

	m.Handle(NewRequest(OpCreateAccount))
	res := m.Handle(NewSubmit(createFields()))
	assert.Equal(t, response.CodeMobileExists, res.Code)
	assert.Equal(t, "Mobile number already exists!", res.Message)
	assert.Equal(t, StateCreatingAccount, m.State())
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	m := f.machine
	m.Handle(NewRequest(OpLogin))
	res := m.Handle(NewSubmit(map[Field]string{FieldMobile: "01234567890", FieldPassword: "nope"}))
	assert.Equal(t, "Invalid credentials!", res.Message)
	assert.Equal(t, StateLoggingIn, m.State())
	assert.True(t, m.Session().IsAbsent())
}

// §8 场景：开户 2500/0.00 → 存款 → 大额取款走验证 → 余额不足的取款被拒
func TestFullScenario(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	// 存款 100.00
	m.Handle(NewRequest(OpDeposit))
	res := m.Handle(NewSubmit(map[Field]string{FieldAmount: "100.00"}))
	require.Equal(t, response.CodeSuccess, res.Code)
	assert.Equal(t, "100.00", f.balance(t))
	f.runTicks(t, StateDepositSucceeded)
	require.Equal(t, StateUserMenu, m.State())

	// 再存 59940.00，总额 60040.00
	m.Handle(NewRequest(OpDeposit))
	m.Handle(NewSubmit(map[Field]string{FieldAmount: "59940.00"}))
	f.runTicks(t, StateDepositSucceeded)
	assert.Equal(t, "60040.00", f.balance(t))

	// 取款 60000.00 超过阈值，触发安全问题验证，余额未被触碰
	m.Handle(NewRequest(OpWithdraw))
	res = m.Handle(NewSubmit(map[Field]string{FieldAmount: "60000.00"}))
	require.Equal(t, StateVerifyingWithdrawal, m.State())
	require.IsType(t, ChallengeData{}, res.Data)
	assert.Equal(t, "What is your father's name?", res.Data.(ChallengeData).Question)
	assert.Equal(t, "60040.00", f.balance(t))

	// 正确回答后提交取款
	res = m.Handle(NewSubmit(map[Field]string{FieldAnswer: "Hassan Khan"}))
	require.Equal(t, response.CodeSuccess, res.Code)
	assert.Equal(t, "40.00", f.balance(t))
	f.runTicks(t, StateWithdrawSucceeded)

	txs, err := f.txRepo.List(2500)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, model.TransactionKindWithdraw, txs[2].Kind)
	assert.Equal(t, "40.00", txs[2].ResultingBalance.StringFixed(2))

	// 余额 40.00 时取 1000.00 被拒：余额不变、无新流水
	m.Handle(NewRequest(OpWithdraw))
	res = m.Handle(NewSubmit(map[Field]string{FieldAmount: "1000.00"}))
	assert.Equal(t, "Insufficient amount! please enter a valid amount.", res.Message)
	assert.Equal(t, StateWithdrawing, m.State())
	assert.Equal(t, "40.00", f.balance(t))

	txs, err = f.txRepo.List(2500)
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

// 阈值以内的取款直接提交，不发问题
func TestWithdrawBelowThresholdCommitsImmediately(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	m.Handle(NewRequest(OpDeposit))
	m.Handle(NewSubmit(map[Field]string{FieldAmount: "60000"}))
	f.runTicks(t, StateDepositSucceeded)

	m.Handle(NewRequest(OpWithdraw))
	res := m.Handle(NewSubmit(map[Field]string{FieldAmount: "50000"}))
	require.Equal(t, response.CodeSuccess, res.Code)
	assert.Equal(t, StateWithdrawSucceeded, m.State())
	assert.Equal(t, "10000.00", f.balance(t))
}

// 回答错误：余额不变、无流水、会话保留，自动回到用户菜单
func TestChallengeFailureLeavesBalanceUntouched(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	m.Handle(NewRequest(OpDeposit))
	m.Handle(NewSubmit(map[Field]string{FieldAmount: "60000"}))
	f.runTicks(t, StateDepositSucceeded)

	m.Handle(NewRequest(OpWithdraw))
	m.Handle(NewSubmit(map[Field]string{FieldAmount: "55000"}))
	require.Equal(t, StateVerifyingWithdrawal, m.State())

	res := m.Handle(NewSubmit(map[Field]string{FieldAnswer: "wrong"}))
	assert.Equal(t, "Incorrect answer!", res.Message)
	assert.Equal(t, StateWithdrawFailed, m.State())
	assert.Equal(t, "60000.00", f.balance(t))

	f.runTicks(t, StateWithdrawFailed)
	assert.Equal(t, StateUserMenu, m.State())
	assert.True(t, m.Session().IsPresent())

	txs, err := f.txRepo.List(2500)
	require.NoError(t, err)
	assert.Len(t, txs, 1) // 只有存款
}

// 验证中取消：丢弃待定取款回到用户菜单，存储不被触碰
func TestChallengeCancelKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	m.Handle(NewRequest(OpDeposit))
	m.Handle(NewSubmit(map[Field]string{FieldAmount: "60000"}))
	f.runTicks(t, StateDepositSucceeded)

	m.Handle(NewRequest(OpWithdraw))
	m.Handle(NewSubmit(map[Field]string{FieldAmount: "55000"}))
	m.Handle(NewRequest(OpCancel))

	assert.Equal(t, StateUserMenu, m.State())
	assert.True(t, m.Session().IsPresent())
	assert.Equal(t, "60000.00", f.balance(t))
}

// 零余额账户的取款界面只提供返回
func TestWithdrawWithNoFunds(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	m.Handle(NewRequest(OpWithdraw))
	res := m.Handle(NewSubmit(map[Field]string{FieldAmount: "10"}))
	assert.Equal(t, "No funds available in this account.", res.Message)
	assert.Equal(t, StateWithdrawing, m.State())

	m.Handle(NewRequest(OpBack))
	assert.Equal(t, StateUserMenu, m.State())
}

func TestDepositInvalidAmount(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	m.Handle(NewRequest(OpDeposit))
	for _, amount := range []string{"abc", "", "0", "-5"} {
		res := m.Handle(NewSubmit(map[Field]string{FieldAmount: amount}))
		assert.Equal(t, "Enter a valid amount!", res.Message, amount)
		assert.Equal(t, StateDepositing, m.State())
	}
	assert.Equal(t, "0.00", f.balance(t))
}

// 更新资料：表单用会话数据预填，提交后存储与会话同步
func TestUpdateInfoFlow(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	res := m.Handle(NewRequest(OpUpdateInfo))
	require.Equal(t, StateUpdatingInfo, m.State())
	form, ok := res.Data.(ProfileFormData)
	require.True(t, ok)
	assert.Equal(t, "Ali Khan", form.Name)
	assert.Equal(t, "pw1", form.Password)

	m.Handle(NewSubmit(map[Field]string{
		FieldName:       "New Name",
		FieldFatherName: "New Father",
		FieldAddress:    "New Address",
		FieldPassword:   "pw2",
	}))
	assert.Equal(t, StateUserMenu, m.State())

	sess, ok := m.Session().Get()
	require.True(t, ok)
	assert.Equal(t, "New Name", sess.Name)

	// 新密码立即生效：旧密码登录失败
	m.Handle(NewRequest(OpLogout))
	f.runTicks(t, StateLoggedOut)
	m.Handle(NewRequest(OpLogin))
	res = m.Handle(NewSubmit(map[Field]string{FieldMobile: "01234567890", FieldPassword: "pw1"}))
	assert.Equal(t, "Invalid credentials!", res.Message)
	res = m.Handle(NewSubmit(map[Field]string{FieldMobile: "01234567890", FieldPassword: "pw2"}))
	assert.Equal(t, response.CodeSuccess, res.Code)
}

func TestViewInfoAndHistory(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	res := m.Handle(NewRequest(OpViewInfo))
	require.Equal(t, StateViewingInfo, m.State())
	info, ok := res.Data.(ProfileData)
	require.True(t, ok)
	assert.Equal(t, 2500, info.AccountNumber)
	assert.Equal(t, "01234567890", info.MobileNumber)
	m.Handle(NewRequest(OpBack))

	res = m.Handle(NewRequest(OpViewHistory))
	require.Equal(t, StateViewingHistory, m.State())
	history, ok := res.Data.(HistoryData)
	require.True(t, ok)
	assert.Empty(t, history.Transactions)
	m.Handle(NewRequest(OpBack))

	m.Handle(NewRequest(OpDeposit))
	m.Handle(NewSubmit(map[Field]string{FieldAmount: "25"}))
	f.runTicks(t, StateDepositSucceeded)

	res = m.Handle(NewRequest(OpViewHistory))
	history = res.Data.(HistoryData)
	require.Len(t, history.Transactions, 1)
	assert.Equal(t, model.TransactionKindDeposit, history.Transactions[0].Kind)
}

func TestCheckBalance(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	res := m.Handle(NewRequest(OpCheckBalance))
	require.Equal(t, StateCheckingBalance, m.State())
	data, ok := res.Data.(BalanceData)
	require.True(t, ok)
	assert.Equal(t, "0.00", data.Balance.StringFixed(2))
}

// 销户：密码错误原地停留；取消不删；密码正确删除并清会话
func TestDeleteAccountFlow(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	m.Handle(NewRequest(OpDeleteAccount))
	res := m.Handle(NewSubmit(map[Field]string{FieldPassword: "wrong"}))
	assert.Equal(t, "Incorrect password!", res.Message)
	assert.Equal(t, StateConfirmingDelete, m.State())

	m.Handle(NewRequest(OpCancel))
	assert.Equal(t, StateUserMenu, m.State())

	m.Handle(NewRequest(OpDeleteAccount))
	res = m.Handle(NewSubmit(map[Field]string{FieldPassword: "pw1"}))
	assert.Equal(t, "Account deleted.", res.Message)
	assert.Equal(t, StateMainMenu, m.State())
	assert.True(t, m.Session().IsAbsent())

	// 删除后无法再登录
	m.Handle(NewRequest(OpLogin))
	res = m.Handle(NewSubmit(map[Field]string{FieldMobile: "01234567890", FieldPassword: "pw1"}))
	assert.Equal(t, "Invalid credentials!", res.Message)
}

// 登出是计时界面：tick 耗尽后清会话回主菜单
func TestLogoutClearsSessionAfterTicks(t *testing.T) {
	f := newFixture(t)
	f.signup(t)
	m := f.machine

	m.Handle(NewRequest(OpLogout))
	require.Equal(t, StateLoggedOut, m.State())
	assert.True(t, m.Session().IsPresent()) // 计时结束前会话仍在

	f.runTicks(t, StateLoggedOut)
	assert.Equal(t, StateMainMenu, m.State())
	assert.True(t, m.Session().IsAbsent())
}

// 未定义的状态×操作组合一律原地停留
func TestUnknownOpsAreNoOps(t *testing.T) {
	f := newFixture(t)
	m := f.machine

	m.Handle(NewRequest(OpLogout))
	assert.Equal(t, StateMainMenu, m.State())

	f.signup(t)
	m.Handle(NewRequest(OpExit))
	assert.Equal(t, StateUserMenu, m.State())
	assert.False(t, m.Done())
}
