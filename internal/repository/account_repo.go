package repository

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bankms/internal/model"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrMobileExists    = errors.New("mobile number already exists")
)

// BaseAccountNumber 首个账号，存储为空或不可读时从这里开始发放
const BaseAccountNumber = 2500

// AccountRepository 账户存储
// 以逗号分隔的单行文本持久化全部账户记录
//
// 【关键点】写入协议：
// 1. 建户为追加写（O_APPEND），一次落盘
// 2. 其余变更走"全量读出 → 内存改写 → 写临时文件 → 原子替换"
//    保证读方永远看不到半写状态；代价是每次变更 O(全部记录)，
//    且只允许单写者（并发外部写者会互相覆盖）
type AccountRepository struct {
	path string
}

// NewAccountRepository 创建账户存储，dir 不存在时延迟到首次写入才建立
func NewAccountRepository(dir, file string) *AccountRepository {
	return &AccountRepository{path: filepath.Join(dir, file)}
}

// Path 返回账户文件的完整路径
func (r *AccountRepository) Path() string {
	return r.path
}

// LoadAll 读出全部账户记录，保持文件内的插入顺序
// 文件不存在视为空存储；坏行静默跳过
func (r *AccountRepository) LoadAll() ([]model.Account, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("打开账户文件失败: %w", err)
	}
	defer f.Close()

	var accounts []model.Account
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if acc, ok := model.ParseAccountLine(scanner.Text()); ok {
			accounts = append(accounts, acc)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取账户文件失败: %w", err)
	}
	return accounts, nil
}

// NextAccountNumber 计算下一个可用账号：max(现有账号)+1，空或不可读时返回 2500
// 每次调用都重新扫描文件，外部编辑或重启后也不会与内存计数器冲突
func (r *AccountRepository) NextAccountNumber() int {
	accounts, err := r.LoadAll()
	if err != nil || len(accounts) == 0 {
		return BaseAccountNumber
	}
	maxAcc := lo.MaxBy(accounts, func(a, b model.Account) bool {
		return a.AccountNumber > b.AccountNumber
	})
	next := maxAcc.AccountNumber + 1
	if next < BaseAccountNumber {
		next = BaseAccountNumber
	}
	return next
}

// Create 新建账户：校验手机号唯一后发放账号、置零余额并追加落盘
// 字段格式校验由上层 service 完成，这里只守护存储不变量
func (r *AccountRepository) Create(acc model.Account) (model.Account, error) {
	accounts, err := r.LoadAll()
	if err != nil {
		return model.Account{}, err
	}
	exists := lo.SomeBy(accounts, func(a model.Account) bool {
		return a.MobileNumber == acc.MobileNumber
	})
	if exists {
		return model.Account{}, ErrMobileExists
	}

	acc.AccountNumber = r.NextAccountNumber()
	acc.Balance = decimal.Zero

	if err := r.appendLine(acc.EncodeLine()); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// FindByCredentials 按手机号+密码精确匹配，顺序扫描取第一条命中记录
func (r *AccountRepository) FindByCredentials(mobile, password string) (model.Account, error) {
	accounts, err := r.LoadAll()
	if err != nil {
		return model.Account{}, err
	}
	acc, found := lo.Find(accounts, func(a model.Account) bool {
		return a.MobileNumber == mobile && a.Password == password
	})
	if !found {
		return model.Account{}, ErrAccountNotFound
	}
	return acc, nil
}

// FindByNumber 按账号查找
func (r *AccountRepository) FindByNumber(number int) (model.Account, error) {
	accounts, err := r.LoadAll()
	if err != nil {
		return model.Account{}, err
	}
	acc, found := lo.Find(accounts, func(a model.Account) bool {
		return a.AccountNumber == number
	})
	if !found {
		return model.Account{}, ErrAccountNotFound
	}
	return acc, nil
}

// UpdateProfile 替换四个可变字段，手机号/账号/余额保持不动
func (r *AccountRepository) UpdateProfile(number int, name, fatherName, address, password string) error {
	matched, err := r.rewrite(number, func(a model.Account) (model.Account, bool) {
		a.Name = name
		a.FatherName = fatherName
		a.Address = address
		a.Password = password
		return a, true
	})
	if err != nil {
		return err
	}
	if !matched {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateBalance 把余额改写为给定的绝对值（新余额由调用方算好）
func (r *AccountRepository) UpdateBalance(number int, newBalance decimal.Decimal) error {
	matched, err := r.rewrite(number, func(a model.Account) (model.Account, bool) {
		a.Balance = newBalance
		return a, true
	})
	if err != nil {
		return err
	}
	if !matched {
		return ErrAccountNotFound
	}
	return nil
}

// Delete 删除账户记录；账号不存在时静默成功（幂等）
func (r *AccountRepository) Delete(number int) error {
	_, err := r.rewrite(number, func(a model.Account) (model.Account, bool) {
		return a, false
	})
	return err
}

// rewrite 全量改写原语：对账号为 number 的记录应用 mutate
// （返回改写结果与是否保留），整体写入临时文件后原子替换正式文件
// 返回值 matched 表示目标账号是否在记录集中出现过
func (r *AccountRepository) rewrite(number int, mutate func(model.Account) (model.Account, bool)) (bool, error) {
	accounts, err := r.LoadAll()
	if err != nil {
		return false, err
	}

	matched := false
	kept := make([]model.Account, 0, len(accounts))
	for _, acc := range accounts {
		if acc.AccountNumber != number {
			kept = append(kept, acc)
			continue
		}
		matched = true
		if out, keep := mutate(acc); keep {
			kept = append(kept, out)
		}
	}

	if err := r.writeAll(kept); err != nil {
		return matched, err
	}
	return matched, nil
}

// writeAll 把整份记录集写入 path+".tmp"，再 rename 覆盖正式文件
// 中途失败不会破坏原文件
func (r *AccountRepository) writeAll(accounts []model.Account) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	tmp := r.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, acc := range accounts {
		if _, err := fmt.Fprintln(w, acc.EncodeLine()); err != nil {
			f.Close()
			return fmt.Errorf("写入临时文件失败: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("替换账户文件失败: %w", err)
	}
	return nil
}

// appendLine 追加一行到账户文件
func (r *AccountRepository) appendLine(line string) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("打开账户文件失败: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("写入账户文件失败: %w", err)
	}
	return nil
}
