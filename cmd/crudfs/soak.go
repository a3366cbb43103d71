package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/objectstream/crudfs/clients/library"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

const (
	soakMaxWriteSize = 1024
	soakMaxFileSize  = 256 * 1024
)

var (
	soakIterations int
	soakSeed       uint64
)

// soakCmd runs a randomized read/write/append/seek workload against a
// freshly formatted volume, mirroring every operation on a local shadow
// buffer and failing on the first divergence.
var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Run a randomized validation workload against the volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := soakSeed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng := rand.New(rand.NewSource(seed))
		fmt.Printf("soak: %d iterations, seed %d\n", soakIterations, seed)

		client := newClient()
		if err := client.Format(); err != nil {
			return err
		}

		fh, err := client.Open("soak_scratch.dat")
		if err != nil {
			return err
		}

		if err := runSoak(client, fh, rng, soakIterations); err != nil {
			return err
		}

		if err := client.Close(fh); err != nil {
			return err
		}
		if err := client.Unmount(); err != nil {
			return err
		}

		fmt.Println("soak: ok")
		return nil
	},
}

func runSoak(client *crudlib.Client, fh int, rng *rand.Rand, iterations int) error {
	shadow := make([]byte, 0, soakMaxFileSize)
	position := 0

	for i := 0; i < iterations; i++ {
		op := rng.Intn(4)
		if len(shadow) == 0 {
			op = 1 // nothing to read or seek over yet
		}

		switch op {
		case 0: // read
			count := rng.Intn(len(shadow) + 1)
			data, err := client.Read(fh, count)
			if err != nil {
				return errors.Wrapf(err, "iteration %d: read %d at %d", i, count, position)
			}
			expected := count
			if position+count > len(shadow) {
				expected = len(shadow) - position
			}
			if len(data) != expected {
				return errors.Errorf("iteration %d: read returned %d bytes, want %d", i, len(data), expected)
			}
			if !bytes.Equal(data, shadow[position:position+expected]) {
				return errors.Errorf("iteration %d: read data diverged at position %d", i, position)
			}
			position += expected

		case 1: // write at current position
			count := rng.Intn(soakMaxWriteSize) + 1
			if position+count >= soakMaxFileSize {
				continue
			}
			chunk := fill(byte(rng.Intn(256)), count)
			if _, err := client.Write(fh, chunk); err != nil {
				return errors.Wrapf(err, "iteration %d: write %d at %d", i, count, position)
			}
			shadow = splice(shadow, position, chunk)
			position += count

		case 2: // append
			count := rng.Intn(soakMaxWriteSize) + 1
			if len(shadow)+count >= soakMaxFileSize {
				continue
			}
			if err := client.Seek(fh, int64(len(shadow))); err != nil {
				return errors.Wrapf(err, "iteration %d: seek to end %d", i, len(shadow))
			}
			position = len(shadow)
			chunk := fill(byte(rng.Intn(256)), count)
			if _, err := client.Write(fh, chunk); err != nil {
				return errors.Wrapf(err, "iteration %d: append %d", i, count)
			}
			shadow = splice(shadow, position, chunk)
			position += count

		case 3: // seek
			position = rng.Intn(len(shadow) + 1)
			if err := client.Seek(fh, int64(position)); err != nil {
				return errors.Wrapf(err, "iteration %d: seek to %d", i, position)
			}
		}
	}

	return nil
}

func fill(ch byte, count int) []byte {
	chunk := make([]byte, count)
	for i := range chunk {
		chunk[i] = ch
	}
	return chunk
}

// splice overwrites shadow at off with chunk, extending it when the write
// runs past the current end.
func splice(shadow []byte, off int, chunk []byte) []byte {
	if need := off + len(chunk); need > len(shadow) {
		shadow = append(shadow, make([]byte, need-len(shadow))...)
	}
	copy(shadow[off:], chunk)
	return shadow
}

func init() {
	soakCmd.Flags().IntVar(&soakIterations, "iterations", 2048, "number of random operations")
	soakCmd.Flags().Uint64Var(&soakSeed, "seed", 0, "random seed, 0 picks one from the clock")
	rootCmd.AddCommand(soakCmd)
}
