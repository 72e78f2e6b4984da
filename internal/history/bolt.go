/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package history

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("history: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("history: CBOR decoder initialization failed: " + err.Error())
	}
}

// BoltStore keeps one bucket per conversation in a single bolt file.
// Keys are big endian sequence numbers so a cursor walks exchanges in append order.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

func NewBoltStore(ctx context.Context, path string) (*BoltStore, error) {
	logger := klog.FromContext(ctx)
	if path == "" {
		return nil, fmt.Errorf("empty bolt path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		logger.Error(err, "NewBoltStore:", "path", path)
		return nil, err
	}
	logger.Info("NewBoltStore: succeeded", "path", path)
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(ctx context.Context, conversationID string) ([]chat.Exchange, error) {
	var exchanges []chat.Exchange
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(conversationID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var exchange chat.Exchange
			if err := decMode.Unmarshal(v, &exchange); err != nil {
				return fmt.Errorf("decode exchange %d: %w", binary.BigEndian.Uint64(k), err)
			}
			exchanges = append(exchanges, exchange)
			return nil
		})
	})
	if err != nil {
		klog.FromContext(ctx).Error(err, "Get:", "conversationId", conversationID)
		return nil, err
	}
	return exchanges, nil
}

func (s *BoltStore) Append(ctx context.Context, exchange chat.Exchange) error {
	if err := validate(exchange); err != nil {
		return err
	}
	val, err := encMode.Marshal(exchange)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(exchange.ConversationID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, val)
	})
	if err != nil {
		klog.FromContext(ctx).Error(err, "Append:", "conversationId", exchange.ConversationID)
	}
	return err
}

func (s *BoltStore) Clear(ctx context.Context, conversationID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(conversationID))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
