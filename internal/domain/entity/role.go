// Package entity 定义领域实体
package entity

// Role 对话角色枚举
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversational 判断角色是否属于对话历史（system 轮次不计入提示词历史）
func (r Role) Conversational() bool {
	return r == RoleUser || r == RoleAssistant
}
