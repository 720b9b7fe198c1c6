package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TransactionKindDeposit  = "Deposit"  // 存款
	TransactionKindWithdraw = "Withdraw" // 取款
)

// PKT 巴基斯坦标准时间（UTC+5），交易时间戳统一使用该时区
var PKT = time.FixedZone("PKT", 5*60*60)

// TimestampLayout 交易时间戳格式：日/月/年 时:分:秒
const TimestampLayout = "02/01/2006 15:04:05"

// ============================================================================
// 交易流水实体
// ============================================================================

// Transaction 账户流水
// 每个账户一份独立日志文件，按账号隔离
//
// 【重要】流水设计原则：
// 1. 只追加，不修改，不删除 —— 账户被删除时整份日志随之销毁
// 2. 记录交易后余额快照 —— 便于核对余额一致性
// 3. 流水写入失败不影响已提交的余额变更（尽力而为的审计日志）
type Transaction struct {
	Timestamp        time.Time       `json:"timestamp"`
	Kind             string          `json:"kind"`              // Deposit / Withdraw
	Amount           decimal.Decimal `json:"amount"`            // 交易金额，恒为正数
	ResultingBalance decimal.Decimal `json:"resulting_balance"` // 交易后余额
}

// balanceMarker 流水行中余额段的分隔标记
const balanceMarker = ", Balance: "

// EncodeLine 将流水编码为日志行（不含换行符）
// 格式：DD/MM/YYYY HH:MM:SS: Kind amount, Balance: resultingBalance
func (t Transaction) EncodeLine() string {
	return fmt.Sprintf("%s: %s %s%s%s",
		t.Timestamp.In(PKT).Format(TimestampLayout),
		t.Kind, t.Amount.StringFixed(2),
		balanceMarker, t.ResultingBalance.StringFixed(2))
}

// ParseTransactionLine 解析一行流水记录，坏行由调用方跳过
func ParseTransactionLine(line string) (Transaction, bool) {
	line = strings.TrimRight(line, "\r\n")

	head, balancePart, found := strings.Cut(line, balanceMarker)
	if !found {
		return Transaction{}, false
	}
	balance, err := decimal.NewFromString(balancePart)
	if err != nil {
		return Transaction{}, false
	}

	// 时间戳自身含有冒号，取固定长度前缀再去掉 ": " 分隔
	if len(head) < len(TimestampLayout)+2 {
		return Transaction{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, head[:len(TimestampLayout)], PKT)
	if err != nil {
		return Transaction{}, false
	}

	kind, amountPart, found := strings.Cut(head[len(TimestampLayout)+2:], " ")
	if !found {
		return Transaction{}, false
	}
	amount, err := decimal.NewFromString(amountPart)
	if err != nil {
		return Transaction{}, false
	}

	return Transaction{
		Timestamp:        ts,
		Kind:             kind,
		Amount:           amount,
		ResultingBalance: balance,
	}, true
}
