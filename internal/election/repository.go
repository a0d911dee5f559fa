package election

import (
	"errors"

	"gorm.io/gorm"
)

// GetElectionByID 读取一场选举的配置，不存在时返回(nil, nil)
func GetElectionByID(db *gorm.DB, id uint) (*Election, error) {
	var e Election
	if err := db.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// GetPositionsByElection 读取一场选举的全部职位，按display_order排序
func GetPositionsByElection(db *gorm.DB, electionID uint) ([]Position, error) {
	var positions []Position
	err := db.Where("election_id = ?", electionID).Order("display_order asc").Find(&positions).Error
	return positions, err
}

// GetCandidatesByElection 读取一场选举的全部候选人
func GetCandidatesByElection(db *gorm.DB, electionID uint) ([]Candidate, error) {
	var candidates []Candidate
	err := db.Where("election_id = ?", electionID).Find(&candidates).Error
	return candidates, err
}
