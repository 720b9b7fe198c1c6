package repository

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"bankms/internal/model"
)

// TransactionRepository 账户流水存储
// 每个账户一份独立的追加写日志文件 transactions_<账号>.txt
type TransactionRepository struct {
	dir string
}

func NewTransactionRepository(dir string) *TransactionRepository {
	return &TransactionRepository{dir: dir}
}

func (r *TransactionRepository) path(number int) string {
	return filepath.Join(r.dir, fmt.Sprintf("transactions_%d.txt", number))
}

// Append 追加一条流水
// 写入失败由调用方决定是否忽略（审计日志为尽力而为，不回滚余额变更）
func (r *TransactionRepository) Append(number int, tx model.Transaction) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}
	f, err := os.OpenFile(r.path(number), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("打开流水文件失败: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, tx.EncodeLine()); err != nil {
		return fmt.Errorf("写入流水文件失败: %w", err)
	}
	return nil
}

// List 按日志顺序（最旧在前）返回该账户的全部流水
// 日志文件不存在时返回空序列；坏行静默跳过
func (r *TransactionRepository) List(number int) ([]model.Transaction, error) {
	f, err := os.Open(r.path(number))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("打开流水文件失败: %w", err)
	}
	defer f.Close()

	var txs []model.Transaction
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if tx, ok := model.ParseTransactionLine(scanner.Text()); ok {
			txs = append(txs, tx)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取流水文件失败: %w", err)
	}
	return txs, nil
}

// Remove 销毁该账户的整份流水日志（随账户删除触发），文件不存在视为成功
func (r *TransactionRepository) Remove(number int) error {
	if err := os.Remove(r.path(number)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除流水文件失败: %w", err)
	}
	return nil
}
