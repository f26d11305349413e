// Package solutionstore keeps track of the work the miner has done on each
// block template, so that a restarted miner can pick up where it stopped.
//
// Templates are identified by the double hash of their header without the
// nonce (see wire.BlockHeader.TemplateID). For every template the store
// holds where an interrupted search started and the next nonce it would have
// tried and, once one is found, the winning nonce with its hash.
package solutionstore

import (
	"bytes"
	"path/filepath"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/util/binaryserializer"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// storeName is the directory under the data directory holding the store.
const storeName = "solutions"

var (
	solutionPrefix = []byte("solution-")
	progressPrefix = []byte("progress-")
)

const (
	solutionValueSize = 4 + hashes.HashSize
	progressValueSize = 4 + 4
)

// ErrCorruptedValue is returned when a stored value has an unexpected
// length.
var ErrCorruptedValue = errors.New("corrupted value in solution store")

// Solution is a nonce that satisfies a template's target.
type Solution struct {
	Nonce uint32
	Hash  hashes.Hash
}

// Progress is how far an interrupted search got. A search is only resumed
// from NextNonce when it starts at Start, otherwise the nonces between its
// start and Start were never tried.
type Progress struct {
	Start     uint32
	NextNonce uint32
}

// Store is a leveldb backed solution store.
type Store struct {
	ldb  *leveldb.DB
	path string
}

// Open opens the store under dataDir, creating it if it doesn't exist.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, storeName)

	ldb, err := leveldb.OpenFile(dbPath, Options())

	// If the database is corrupted, attempt to recover.
	if ldbErrors.IsCorrupted(err) {
		log.Warnf("LevelDB corruption detected for path %s: %s", dbPath, err)
		ldb, err = leveldb.RecoverFile(dbPath, Options())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to recover the solution store at %s", dbPath)
		}
		log.Warnf("LevelDB recovered from corruption for path %s", dbPath)
	}

	// If the database cannot be opened for any other
	// reason, return the error as-is.
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open the solution store at %s", dbPath)
	}

	log.Debugf("Opened the solution store at %s", dbPath)
	return &Store{ldb: ldb, path: dbPath}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return errors.WithStack(s.ldb.Close())
}

// Path returns the directory the store lives in.
func (s *Store) Path() string {
	return s.path
}

func key(prefix []byte, templateID *hashes.Hash) []byte {
	return append(append(make([]byte, 0, len(prefix)+hashes.HashSize), prefix...), templateID[:]...)
}

// PutSolution records the solution of a template. Once a template is solved
// its progress is no longer needed, so it is removed in the same batch.
func (s *Store) PutSolution(templateID *hashes.Hash, solution *Solution) error {
	var value bytes.Buffer
	err := binaryserializer.PutUint32(&value, solution.Nonce)
	if err != nil {
		return err
	}
	value.Write(solution.Hash[:])

	batch := new(leveldb.Batch)
	batch.Put(key(solutionPrefix, templateID), value.Bytes())
	batch.Delete(key(progressPrefix, templateID))
	err = s.ldb.Write(batch, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	log.Debugf("Stored nonce %d for template %s", solution.Nonce, templateID)
	return nil
}

// Solution returns the stored solution of a template. found is false if the
// template was never solved.
func (s *Store) Solution(templateID *hashes.Hash) (solution *Solution, found bool, err error) {
	value, err := s.ldb.Get(key(solutionPrefix, templateID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	if len(value) != solutionValueSize {
		return nil, false, errors.Wrapf(ErrCorruptedValue, "solution of template %s is %d bytes", templateID, len(value))
	}

	reader := bytes.NewReader(value)
	nonce, err := binaryserializer.Uint32(reader)
	if err != nil {
		return nil, false, err
	}
	solution = &Solution{Nonce: nonce}
	copy(solution.Hash[:], value[4:])
	return solution, true, nil
}

// PutProgress records how far the search of a template got.
func (s *Store) PutProgress(templateID *hashes.Hash, progress *Progress) error {
	var value bytes.Buffer
	err := binaryserializer.PutUint32(&value, progress.Start)
	if err != nil {
		return err
	}
	err = binaryserializer.PutUint32(&value, progress.NextNonce)
	if err != nil {
		return err
	}
	return errors.WithStack(s.ldb.Put(key(progressPrefix, templateID), value.Bytes(), nil))
}

// Progress returns how far the search of a template got. found is false if
// no progress was recorded.
func (s *Store) Progress(templateID *hashes.Hash) (progress *Progress, found bool, err error) {
	value, err := s.ldb.Get(key(progressPrefix, templateID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	if len(value) != progressValueSize {
		return nil, false, errors.Wrapf(ErrCorruptedValue, "progress of template %s is %d bytes", templateID, len(value))
	}
	reader := bytes.NewReader(value)
	start, err := binaryserializer.Uint32(reader)
	if err != nil {
		return nil, false, err
	}
	nextNonce, err := binaryserializer.Uint32(reader)
	if err != nil {
		return nil, false, err
	}
	return &Progress{Start: start, NextNonce: nextNonce}, true, nil
}

// DeleteProgress forgets the progress of a template. Deleting progress that
// was never recorded is not an error.
func (s *Store) DeleteProgress(templateID *hashes.Hash) error {
	return errors.WithStack(s.ldb.Delete(key(progressPrefix, templateID), nil))
}

// Solutions calls fn for every stored solution until fn returns false.
func (s *Store) Solutions(fn func(templateID *hashes.Hash, solution *Solution) bool) error {
	iterator := s.ldb.NewIterator(util.BytesPrefix(solutionPrefix), nil)
	defer iterator.Release()

	for iterator.Next() {
		templateID, err := hashes.FromBytes(iterator.Key()[len(solutionPrefix):])
		if err != nil {
			return err
		}
		value := iterator.Value()
		if len(value) != solutionValueSize {
			return errors.Wrapf(ErrCorruptedValue, "solution of template %s is %d bytes", templateID, len(value))
		}
		nonce, err := binaryserializer.Uint32(bytes.NewReader(value))
		if err != nil {
			return err
		}
		solution := &Solution{Nonce: nonce}
		copy(solution.Hash[:], value[4:])
		if !fn(templateID, solution) {
			break
		}
	}
	return errors.WithStack(iterator.Error())
}
