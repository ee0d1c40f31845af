package repository

import (
	"fmt"

	"github.com/jps1990/Night-Shade-V2/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository 用 gorm 实现 Repository，所有错误统一包装为 ErrUnavailable
// 以便上层按「持久层不可用」处理。
type GormRepository struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

func (r *GormRepository) LoadRooms() ([]models.Room, error) {
	var rooms []models.Room
	if err := r.db.Order("created_at asc").Find(&rooms).Error; err != nil {
		return nil, wrap("load rooms", err)
	}
	return rooms, nil
}

func (r *GormRepository) LoadMessages() ([]models.Message, error) {
	var msgs []models.Message
	if err := r.db.Order("created_at asc, id asc").Find(&msgs).Error; err != nil {
		return nil, wrap("load messages", err)
	}
	return msgs, nil
}

// EnsureRoom 幂等建房：已存在时不做任何修改。
func (r *GormRepository) EnsureRoom(room *models.Room) error {
	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(room).Error
	return wrap("ensure room", err)
}

func (r *GormRepository) SaveRoom(room *models.Room) error {
	return wrap("save room", r.db.Save(room).Error)
}

func (r *GormRepository) UpdateRoomFields(id string, fields map[string]interface{}) error {
	err := r.db.Model(&models.Room{}).Where("id = ?", id).Updates(fields).Error
	return wrap("update room", err)
}

func (r *GormRepository) DeleteRoom(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Room{ID: id}).Error
	})
	return wrap("delete room", err)
}

func (r *GormRepository) SaveMessage(msg *models.Message) error {
	return wrap("save message", r.db.Create(msg).Error)
}

func (r *GormRepository) DeleteMessages(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.Where("id IN ?", ids).Delete(&models.Message{}).Error
	return wrap("delete messages", err)
}

func (r *GormRepository) SaveUser(user *models.User) error {
	return wrap("save user", r.db.Save(user).Error)
}
