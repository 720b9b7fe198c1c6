package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"bankms/internal/model"
	"bankms/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrValidation    = errors.New("all fields must be filled correctly")
	ErrInvalidAmount = errors.New("invalid amount")
)

// CreateAccountInput 建户请求字段
type CreateAccountInput struct {
	Name         string `validate:"required"`
	FatherName   string `validate:"required"`
	MobileNumber string `validate:"required,len=11,numeric"`
	Address      string `validate:"required"`
	Password     string `validate:"required"`
}

// AccountService 账户业务
// 负责建户、资料更新、存取款、销户与流水查询
//
// 【关键点】存取款的提交顺序：
// 1. 先把算好的新余额落盘（失败则整体中止，会话内存不被污染）
// 2. 落盘成功后才更新会话里的账户拷贝
// 3. 最后追加流水 —— 流水写失败只记日志，不影响已提交的余额变更
type AccountService struct {
	accountRepo *repository.AccountRepository
	txRepo      *repository.TransactionRepository
	validate    *validator.Validate
	now         func() time.Time
}

func NewAccountService(accountRepo *repository.AccountRepository, txRepo *repository.TransactionRepository) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		validate:    validator.New(),
		now:         time.Now,
	}
}

// CreateAccount 建户：字段校验 → 手机号唯一性 → 发号落盘
// 新账户余额恒为零
func (s *AccountService) CreateAccount(input CreateAccountInput) (model.Account, error) {
	if err := s.validate.Struct(input); err != nil {
		return model.Account{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.accountRepo.Create(model.Account{
		Name:         input.Name,
		FatherName:   input.FatherName,
		MobileNumber: input.MobileNumber,
		Address:      input.Address,
		Password:     input.Password,
	})
}

// UpdateProfile 更新四个可变字段；落盘成功后才改写会话拷贝
// 与历史行为一致：不做字段校验，允许提交空值
func (s *AccountService) UpdateProfile(acc *model.Account, name, fatherName, address, password string) error {
	if err := s.accountRepo.UpdateProfile(acc.AccountNumber, name, fatherName, address, password); err != nil {
		return err
	}
	acc.Name = name
	acc.FatherName = fatherName
	acc.Address = address
	acc.Password = password
	return nil
}

// Deposit 存款：金额必须大于零
// 返回本次生成的流水记录（余额快照为入账后余额）
func (s *AccountService) Deposit(acc *model.Account, amount decimal.Decimal) (model.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return model.Transaction{}, ErrInvalidAmount
	}
	newBalance := acc.Balance.Add(amount)
	return s.commit(acc, model.TransactionKindDeposit, amount, newBalance)
}

// Withdraw 取款：金额必须大于零且不超过当前余额，保证余额不为负
// 大额取款的安全问题验证由状态机在调用前完成
func (s *AccountService) Withdraw(acc *model.Account, amount decimal.Decimal) (model.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(acc.Balance) {
		return model.Transaction{}, ErrInvalidAmount
	}
	newBalance := acc.Balance.Sub(amount)
	return s.commit(acc, model.TransactionKindWithdraw, amount, newBalance)
}

// commit 存取款共用的提交路径
func (s *AccountService) commit(acc *model.Account, kind string, amount, newBalance decimal.Decimal) (model.Transaction, error) {
	if err := s.accountRepo.UpdateBalance(acc.AccountNumber, newBalance); err != nil {
		return model.Transaction{}, err
	}
	acc.Balance = newBalance

	tx := model.Transaction{
		Timestamp:        s.now(),
		Kind:             kind,
		Amount:           amount,
		ResultingBalance: newBalance,
	}
	if err := s.txRepo.Append(acc.AccountNumber, tx); err != nil {
		// 流水为尽力而为的审计日志，余额变更已生效，不向上传播
		log.Printf("追加流水失败（账号 %d）: %v", acc.AccountNumber, err)
	}
	return tx, nil
}

// DeleteAccount 销户：移除账户记录并销毁整份流水日志
// 账号不存在时为幂等空操作
func (s *AccountService) DeleteAccount(number int) error {
	if err := s.accountRepo.Delete(number); err != nil {
		return err
	}
	return s.txRepo.Remove(number)
}

// History 按日志顺序返回账户流水
func (s *AccountService) History(number int) ([]model.Transaction, error) {
	return s.txRepo.List(number)
}
