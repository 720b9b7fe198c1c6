package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"bankms/internal/handler"
	"bankms/pkg/response"

	"github.com/fatih/color"
)

// 终端界面驱动：把菜单输入翻译成抽象操作请求，渲染状态机返回的结果
// 纯展示层，替代原程序的窗口界面，不承载任何业务规则

const tickInterval = time.Second / 60

var (
	title  = color.New(color.FgCyan, color.Bold)
	notice = color.New(color.FgRed)
	okText = color.New(color.FgGreen)
)

func runTerminal(m *handler.Machine) error {
	in := bufio.NewReader(os.Stdin)

	for !m.Done() {
		switch m.State() {
		case handler.StateMainMenu:
			title.Println("\n=== Bank Management System ===")
			fmt.Println("1) Create Account  2) Login  3) Exit")
			switch readLine(in, "> ") {
			case "1":
				m.Handle(handler.NewRequest(handler.OpCreateAccount))
			case "2":
				m.Handle(handler.NewRequest(handler.OpLogin))
			case "3":
				m.Handle(handler.NewRequest(handler.OpExit))
			}

		case handler.StateCreatingAccount:
			if m.AccountCreated() {
				okText.Printf("Account created! Number: %d\n", m.CreatedNumber())
				fmt.Println("1) Go to Login  2) Back")
				if readLine(in, "> ") == "1" {
					m.Handle(handler.NewRequest(handler.OpLogin))
				} else {
					m.Handle(handler.NewRequest(handler.OpBack))
				}
				continue
			}
			title.Println("\n--- Create New Account ---")
			fields := map[handler.Field]string{
				handler.FieldName:       readLine(in, "Name: "),
				handler.FieldFatherName: readLine(in, "Father's Name: "),
				handler.FieldMobile:     readLine(in, "Mobile (11 digits): "),
				handler.FieldAddress:    readLine(in, "Address: "),
				handler.FieldPassword:   readLine(in, "Password: "),
			}
			render(m.Handle(handler.NewSubmit(fields)))

		case handler.StateLoggingIn:
			title.Println("\n--- Login ---")
			mobile := readLine(in, "Mobile (empty to go back): ")
			if mobile == "" {
				m.Handle(handler.NewRequest(handler.OpBack))
				continue
			}
			render(m.Handle(handler.NewSubmit(map[handler.Field]string{
				handler.FieldMobile:   mobile,
				handler.FieldPassword: readLine(in, "Password: "),
			})))

		case handler.StateUserMenu:
			title.Println("\n--- User Menu ---")
			fmt.Println("1) Check Balance  2) Update Info  3) View Info  4) Deposit")
			fmt.Println("5) Withdraw  6) View History  7) Delete Account  8) Logout")
			ops := map[string]handler.Op{
				"1": handler.OpCheckBalance, "2": handler.OpUpdateInfo,
				"3": handler.OpViewInfo, "4": handler.OpDeposit,
				"5": handler.OpWithdraw, "6": handler.OpViewHistory,
				"7": handler.OpDeleteAccount, "8": handler.OpLogout,
			}
			if op, ok := ops[readLine(in, "> ")]; ok {
				render(m.Handle(handler.NewRequest(op)))
			}

		case handler.StateCheckingBalance, handler.StateViewingInfo, handler.StateViewingHistory:
			readLine(in, "Press Enter to go back...")
			m.Handle(handler.NewRequest(handler.OpBack))

		case handler.StateUpdatingInfo:
			title.Println("\n--- Update Information ---")
			render(m.Handle(handler.NewSubmit(map[handler.Field]string{
				handler.FieldName:       readLine(in, "Name: "),
				handler.FieldFatherName: readLine(in, "Father's Name: "),
				handler.FieldAddress:    readLine(in, "Address: "),
				handler.FieldPassword:   readLine(in, "Password: "),
			})))

		case handler.StateDepositing:
			amount := readLine(in, "Deposit amount (empty to go back): ")
			if amount == "" {
				m.Handle(handler.NewRequest(handler.OpBack))
				continue
			}
			render(m.Handle(handler.NewSubmit(map[handler.Field]string{handler.FieldAmount: amount})))

		case handler.StateWithdrawing:
			amount := readLine(in, "Withdraw amount (empty to go back): ")
			if amount == "" {
				m.Handle(handler.NewRequest(handler.OpBack))
				continue
			}
			render(m.Handle(handler.NewSubmit(map[handler.Field]string{handler.FieldAmount: amount})))

		case handler.StateVerifyingWithdrawal:
			answer := readLine(in, "Answer (empty to cancel): ")
			if answer == "" {
				m.Handle(handler.NewRequest(handler.OpCancel))
				continue
			}
			render(m.Handle(handler.NewSubmit(map[handler.Field]string{handler.FieldAnswer: answer})))

		case handler.StateConfirmingDelete:
			title.Println("\n--- Confirm Delete ---")
			password := readLine(in, "Password (empty to cancel): ")
			if password == "" {
				m.Handle(handler.NewRequest(handler.OpCancel))
				continue
			}
			render(m.Handle(handler.NewSubmit(map[handler.Field]string{handler.FieldPassword: password})))

		case handler.StateDepositSucceeded:
			okText.Println("Deposit Successful!")
			waitTicks(m)
		case handler.StateWithdrawSucceeded:
			okText.Println("Withdrawal Successful!")
			waitTicks(m)
		case handler.StateWithdrawFailed:
			notice.Println("Withdrawal cancelled. Returning to menu...")
			waitTicks(m)
		case handler.StateLoggedOut:
			okText.Println("Thank You! Thanks for visiting our bank.")
			waitTicks(m)
		}
	}
	return nil
}

// waitTicks 在计时界面里推进状态机节拍直到自动返回
func waitTicks(m *handler.Machine) {
	state := m.State()
	for m.State() == state {
		time.Sleep(tickInterval)
		m.Tick()
	}
}

// render 渲染一次操作结果：提示消息 + 数据负载
func render(res *response.Result) {
	if res == nil {
		return
	}
	if res.Message != "" {
		if res.Code == response.CodeSuccess {
			okText.Println(res.Message)
		} else {
			notice.Println(res.Message)
		}
	}
	switch data := res.Data.(type) {
	case handler.BalanceData:
		fmt.Printf("Balance: %s\n", data.Balance.StringFixed(2))
	case handler.ProfileData:
		fmt.Printf("Name: %s\nFather's Name: %s\nMobile: %s\nAddress: %s\nAccount Number: %d\nBalance: %s\n",
			data.Name, data.FatherName, data.MobileNumber, data.Address,
			data.AccountNumber, data.Balance.StringFixed(2))
	case handler.ChallengeData:
		title.Println("Security question: " + data.Question)
	case handler.HistoryData:
		if len(data.Transactions) == 0 {
			fmt.Println("No transactions found.")
			return
		}
		for _, tx := range data.Transactions {
			fmt.Println(tx.EncodeLine())
		}
	}
}

func readLine(in *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
