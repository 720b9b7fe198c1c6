package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Account 账户记录
// 是整个系统的核心数据，持久化为逗号分隔的单行文本
//
// 【重要】账户表设计原则：
// 1. mobile_number 全局唯一 —— 建户时校验
// 2. account_number 由存储层按 max+1 发放，起始 2500，只增不回收
// 3. balance 在任何已提交操作之后都不为负
type Account struct {
	Name          string          `json:"name"`
	FatherName    string          `json:"father_name"`
	MobileNumber  string          `json:"mobile_number"`  // 恰好 11 位 ASCII 数字
	Address       string          `json:"address"`
	Password      string          `json:"password"` // 明文存储，沿用历史文件格式（已知限制）
	AccountNumber int             `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

// accountFieldCount 单行字段数，少一个或多一个都视为坏行
const accountFieldCount = 7

// EncodeLine 将账户编码为存储行（不含换行符）
// 字段顺序：name,father_name,mobile_number,address,password,account_number,balance
// 余额固定保留两位小数，与既有文件格式保持一致
func (a Account) EncodeLine() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%d,%s",
		a.Name, a.FatherName, a.MobileNumber, a.Address, a.Password,
		a.AccountNumber, a.Balance.StringFixed(2))
}

// ParseAccountLine 解析一行账户记录
// 七个字段必须全部解析成功，否则该行视为坏行由调用方静默跳过
func ParseAccountLine(line string) (Account, bool) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, ",")
	if len(parts) != accountFieldCount {
		return Account{}, false
	}

	number, err := strconv.Atoi(parts[5])
	if err != nil {
		return Account{}, false
	}
	balance, err := decimal.NewFromString(parts[6])
	if err != nil {
		return Account{}, false
	}

	return Account{
		Name:          parts[0],
		FatherName:    parts[1],
		MobileNumber:  parts[2],
		Address:       parts[3],
		Password:      parts[4],
		AccountNumber: number,
		Balance:       balance,
	}, true
}
