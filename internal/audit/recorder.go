package audit

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// Record 向审计台账追加一条记录。
// payload 会被序列化为JSON；序列化失败时记录原始描述而不是丢弃整条记录。
func Record(db *gorm.DB, voterID *uint, action Action, payload any, ip, agent string) error {
	payloadJSON := "{}"
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			payloadJSON = fmt.Sprintf(`{"marshal_error":%q}`, err.Error())
		} else {
			payloadJSON = string(b)
		}
	}

	entry := Entry{
		VoterID: voterID,
		Action:  action,
		Payload: payloadJSON,
		IP:      ip,
		Agent:   agent,
	}
	return db.Create(&entry).Error
}

// RecordBestEffort 是Record的尽力而为版本。
// 审计写入自身的失败只打印告警，绝不掩盖调用方正在处理的原始错误。
func RecordBestEffort(db *gorm.DB, voterID *uint, action Action, payload any, ip, agent string) {
	if err := Record(db, voterID, action, payload, ip, agent); err != nil {
		fmt.Printf("警告: 审计记录写入失败 (action=%s): %v\n", action, err)
	}
}
