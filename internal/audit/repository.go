package audit

import (
	"time"

	"gorm.io/gorm"
)

// CountRecentAttempts 统计一个投票人在since之后、给定动作范围内的审计记录数。
// 频率限制器在Redis不可用时用它作为回退数据源。
func CountRecentAttempts(db *gorm.DB, voterID uint, since time.Time, actions []Action) (int64, error) {
	var count int64
	err := db.Model(&Entry{}).
		Where("voter_id = ? AND created_at > ? AND action IN ?", voterID, since, actions).
		Count(&count).Error
	return count, err
}

// AllRecentAttempts 按投票人分组返回窗口内的全部尝试，用于Redis恢复后的全量重建。
func AllRecentAttempts(db *gorm.DB, since time.Time, actions []Action) (map[uint][]time.Time, error) {
	var entries []Entry
	err := db.Model(&Entry{}).
		Select("voter_id", "created_at").
		Where("voter_id IS NOT NULL AND created_at > ? AND action IN ?", since, actions).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[uint][]time.Time)
	for _, e := range entries {
		if e.VoterID != nil {
			grouped[*e.VoterID] = append(grouped[*e.VoterID], e.CreatedAt)
		}
	}
	return grouped, nil
}
