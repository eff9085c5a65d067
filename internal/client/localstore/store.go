// Package localstore 在本地 bbolt 文件中保存客户端会话和通知缓存
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aquasense-http-service/internal/client"
	"aquasense-http-service/internal/domain/models"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketSession       = []byte("session")
	bucketNotifications = []byte("notifications")
	keyCurrent          = []byte("current")
)

// ErrNoSession 本地没有登录会话
var ErrNoSession = errors.New("no saved session")

// Session 客户端会话，整体作为一个值写入，保证用户、令牌与准入状态一致
type Session struct {
	User         *client.User          `json:"user"`
	Token        string                `json:"token"`
	State        models.AdmissionState `json:"state"`
	AuthProvider models.AuthProvider   `json:"authProvider"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// ShowAccessModal 已登录但尚未获得设备访问权限
func (s *Session) ShowAccessModal() bool {
	return s != nil && s.Token != "" && s.State.ShowAccessModal()
}

// Store 本地存储
type Store struct {
	db *bolt.DB
}

// Open 打开或创建存储文件
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开本地存储失败: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketNotifications} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化本地存储失败: %w", err)
	}
	return &Store{db: db}, nil
}

// Close 关闭存储
func (s *Store) Close() error {
	return s.db.Close()
}

func readSession(tx *bolt.Tx) (*Session, error) {
	data := tx.Bucket(bucketSession).Get(keyCurrent)
	if data == nil {
		return nil, ErrNoSession
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("解析本地会话失败: %w", err)
	}
	return &sess, nil
}

func writeSession(tx *bolt.Tx, sess *Session) error {
	sess.UpdatedAt = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketSession).Put(keyCurrent, data)
}

// LoadSession 读取会话，没有时返回 ErrNoSession
func (s *Store) LoadSession() (*Session, error) {
	var sess *Session
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		sess, err = readSession(tx)
		return err
	})
	return sess, err
}

// SaveSession 覆盖保存会话
func (s *Store) SaveSession(sess *Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return writeSession(tx, sess)
	})
}

// UpdateSession 在一个事务中读取、修改并写回会话；fn 返回错误时不写入
func (s *Store) UpdateSession(fn func(*Session) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sess, err := readSession(tx)
		if errors.Is(err, ErrNoSession) {
			sess = &Session{}
		} else if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		return writeSession(tx, sess)
	})
}

// ClearSession 删除会话和全部通知缓存
func (s *Store) ClearSession() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSession).Delete(keyCurrent); err != nil {
			return err
		}
		if err := tx.DeleteBucket(bucketNotifications); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketNotifications)
		return err
	})
}

// SaveNotifications 保存某个范围（admin、super_admin、user）的通知列表
func (s *Store) SaveNotifications(scope string, list []models.Notification) error {
	if list == nil {
		list = []models.Notification{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNotifications).Put([]byte(scope), data)
	})
}

// LoadNotifications 读取缓存的通知列表，没有缓存时返回空列表
func (s *Store) LoadNotifications(scope string) ([]models.Notification, error) {
	list := []models.Notification{}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNotifications).Get([]byte(scope))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &list)
	})
	return list, err
}
