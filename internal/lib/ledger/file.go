package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLedger is a MemLedger persisted to a JSON file after every change.  It lets a local deployment keep
// balances across CLI invocations.
type FileLedger struct {
	*MemLedger
	path   string
	saveMu sync.Mutex
}

func OpenFileLedger(path string) (*FileLedger, error) {
	fl := &FileLedger{MemLedger: NewMemLedger(), path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fl, nil
	}
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(data, &fl.balances); err != nil {
		return nil, fmt.Errorf("parsing ledger file %s: %w", path, err)
	}
	if fl.balances == nil {
		fl.balances = map[Asset]map[string]uint64{}
	}
	return fl, nil
}

func (f *FileLedger) Path() string {
	return f.path
}

func (f *FileLedger) Transfer(ctx context.Context, xfer Transfer) error {
	if err := f.MemLedger.Transfer(ctx, xfer); err != nil {
		return err
	}
	if err := f.save(); err != nil {
		// can't fail - the forward transfer just succeeded
		_ = f.MemLedger.Transfer(context.Background(), xfer.Reverse())
		return err
	}
	return nil
}

func (f *FileLedger) Mint(asset Asset, account string, amount uint64) error {
	f.MemLedger.Mint(asset, account, amount)
	return f.save()
}

// save writes into a temp file first, replacing the ledger file only once fully written.
func (f *FileLedger) save() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	f.MemLedger.Lock()
	data, err := json.Marshal(f.balances)
	f.MemLedger.Unlock()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(f.path), 0775); err != nil {
		return err
	}
	temp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	if _, err = temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error saving ledger: %w", err)
	}
	if err = temp.Close(); err != nil {
		return err
	}
	return os.Rename(temp.Name(), f.path)
}
