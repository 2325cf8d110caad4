package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/rajivgeraev/toyswap-api/internal/models"
	"github.com/rajivgeraev/toyswap-api/internal/utils"
)

const (
	messagePrefix = "msg:"
	sequenceKey   = "seq:messages"
)

// BadgerStore - встроенное хранилище истории для запуска без PostgreSQL.
// Ключ "msg:{room}:{unixnano}:{id}" с нулевым дополнением дает хронологический порядок при сканировании.
type BadgerStore struct {
	db    *badger.DB
	seq   *badger.Sequence
	rooms utils.KeyedMutex[string]
	log   *logrus.Logger
}

// OpenBadgerStore открывает базу в каталоге dir
func OpenBadgerStore(dir string, log *logrus.Logger) (*BadgerStore, error) {
	bdb, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия badger %s: %w", dir, err)
	}
	seq, err := bdb.GetSequence([]byte(sequenceKey), 100)
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("ошибка создания последовательности: %w", err)
	}
	return &BadgerStore{db: bdb, seq: seq, log: log}, nil
}

// Close освобождает последовательность и закрывает базу
func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.log.WithError(err).Warn("Не удалось освободить последовательность")
	}
	return s.db.Close()
}

func (s *BadgerStore) Append(_ context.Context, msg *models.Message) error {
	unlock := s.rooms.Lock(msg.RoomID)
	defer unlock()

	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("ошибка получения ID: %w", err)
	}

	last, err := s.lastTimestamp(msg.RoomID)
	if err != nil {
		return err
	}
	at := time.Now().UTC()
	if at.Before(last) {
		at = last
	}

	msg.ID = int64(next) + 1
	msg.CreatedAt = at

	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg), value)
	})
}

func (s *BadgerStore) Fetch(_ context.Context, roomID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(roomID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var msg models.Message
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			})
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	return messages, err
}

func (s *BadgerStore) PurgeUser(_ context.Context, userID int64, toyIDs []int64) error {
	var doomed [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var msg models.Message
			if err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			}); err != nil {
				return err
			}
			if msg.SenderID == userID || msg.ReceiverID == userID ||
				(msg.ToyID != nil && lo.Contains(toyIDs, *msg.ToyID)) {
				doomed = append(doomed, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(doomed) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range doomed {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "messages": len(doomed)}).Info("Переписка пользователя удалена")
	return wb.Flush()
}

// lastTimestamp возвращает время последнего сообщения комнаты по ключу, не читая значение
func (s *BadgerStore) lastTimestamp(roomID string) (time.Time, error) {
	var last time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(roomID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(append([]byte{}, prefix...), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		parts := strings.Split(string(it.Item().Key()[len(prefix):]), ":")
		nanos, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return fmt.Errorf("поврежденный ключ сообщения: %w", err)
		}
		last = time.Unix(0, nanos).UTC()
		return nil
	})
	return last, err
}

func roomPrefix(roomID string) []byte {
	return []byte(messagePrefix + roomID + ":")
}

func messageKey(msg *models.Message) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%019d", messagePrefix, msg.RoomID, msg.CreatedAt.UnixNano(), msg.ID))
}
