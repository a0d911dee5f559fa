package voter

import (
	"errors"

	"gorm.io/gorm"
)

// GetVoterByID 读取一个投票人，不存在时返回(nil, nil)
func GetVoterByID(db *gorm.DB, id uint) (*Voter, error) {
	var v Voter
	if err := db.First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
