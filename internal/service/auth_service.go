package service

import (
	"math/rand"
	"strconv"

	"bankms/internal/model"
	"bankms/internal/repository"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 登录与大额取款安全问题验证
// ============================================================================

// securityQuestions 四个固定安全问题，取款验证时随机抽取一个
// 答案绑定会话账户自身的字段
var securityQuestions = [4]string{
	"What is your father's name?",
	"What is your registered mobile number?",
	"What is your address?",
	"What is your account number?",
}

// Challenge 一次取款验证：问题文本与期望答案
type Challenge struct {
	Index    int
	Question string
	Answer   string
}

// AuthOption AuthService 可选配置
type AuthOption func(*AuthService)

// WithQuestionPicker 注入问题下标选择器，测试用固定下标替换随机源
func WithQuestionPicker(pick func(n int) int) AuthOption {
	return func(s *AuthService) {
		s.pick = pick
	}
}

// AuthService 认证业务：凭证校验 + 大额取款的安全问题验证
type AuthService struct {
	accountRepo *repository.AccountRepository
	threshold   decimal.Decimal
	pick        func(n int) int
}

func NewAuthService(accountRepo *repository.AccountRepository, threshold decimal.Decimal, opts ...AuthOption) *AuthService {
	s := &AuthService{
		accountRepo: accountRepo,
		threshold:   threshold,
		pick:        rand.Intn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate 按手机号+密码精确匹配（区分大小写）
// 命中的记录将由状态机接管为当前会话
func (s *AuthService) Authenticate(mobile, password string) (model.Account, error) {
	return s.accountRepo.FindByCredentials(mobile, password)
}

// RequiresVerification 判断取款金额是否超过验证阈值
func (s *AuthService) RequiresVerification(amount decimal.Decimal) bool {
	return amount.GreaterThan(s.threshold)
}

// IssueChallenge 随机抽取一个安全问题并绑定期望答案
// 账号作为答案时取其十进制文本形式
func (s *AuthService) IssueChallenge(acc model.Account) Challenge {
	idx := s.pick(len(securityQuestions))
	ch := Challenge{Index: idx, Question: securityQuestions[idx]}
	switch idx {
	case 0:
		ch.Answer = acc.FatherName
	case 1:
		ch.Answer = acc.MobileNumber
	case 2:
		ch.Answer = acc.Address
	case 3:
		ch.Answer = strconv.Itoa(acc.AccountNumber)
	}
	return ch
}

// VerifyChallenge 严格字符串相等（大小写与空白敏感）
func (s *AuthService) VerifyChallenge(ch Challenge, answer string) bool {
	return ch.Answer == answer
}
