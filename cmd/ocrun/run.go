package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ocrun/internal/card"
	"github.com/samcharles93/ocrun/internal/device"
	"github.com/samcharles93/ocrun/internal/hostmem"
	"github.com/samcharles93/ocrun/internal/logger"
	"github.com/samcharles93/ocrun/pkg/accel"
)

// trailingLen is how far past the requested size the output buffer is
// over-allocated when verifying, so writes past the end are detectable.
const trailingLen = 1024

func runCmd() *cli.Command {
	var (
		input      string
		output     string
		actionName string
		srcType    string
		srcAddr    uint64
		dstType    string
		dstAddr    uint64
		size       int64
		verify     bool
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Execute one job on an accelerator action",
		Flags: append(commonCardFlags(),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "input file to feed the action",
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "file to write the action output to",
				Destination: &output,
			},
			&cli.StringFlag{
				Name:        "action",
				Usage:       "action to attach (helloworld, memcopy, or a hex type id)",
				Value:       "helloworld",
				Destination: &actionName,
			},
			&cli.StringFlag{
				Name:        "src-type",
				Aliases:     []string{"A"},
				Usage:       "source address space (HOST_DRAM, CARD_DRAM, TYPE_NVME)",
				Value:       "HOST_DRAM",
				Destination: &srcType,
			},
			&cli.Uint64Flag{
				Name:        "src-addr",
				Aliases:     []string{"a"},
				Usage:       "source address when no input file is given",
				Destination: &srcAddr,
			},
			&cli.StringFlag{
				Name:        "dst-type",
				Aliases:     []string{"D"},
				Usage:       "destination address space (HOST_DRAM, CARD_DRAM, TYPE_NVME)",
				Value:       "HOST_DRAM",
				Destination: &dstType,
			},
			&cli.Uint64Flag{
				Name:        "dst-addr",
				Aliases:     []string{"d"},
				Usage:       "destination address when the output stays on the card",
				Destination: &dstAddr,
			},
			&cli.Int64Flag{
				Name:        "size",
				Aliases:     []string{"s"},
				Usage:       "transfer size in bytes (overridden by the input file size)",
				Value:       1024,
				Destination: &size,
			},
			&cli.BoolFlag{
				Name:        "verify",
				Aliases:     []string{"X"},
				Usage:       "verify the result if possible",
				Destination: &verify,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyCardConfig(cmd, LoadConfig())

			typeIn, err := accel.ParseAddrType(srcType)
			if err != nil {
				return err
			}
			typeOut, err := accel.ParseAddrType(dstType)
			if err != nil {
				return err
			}
			actionType, err := parseActionType(actionName)
			if err != nil {
				return err
			}

			addrIn := srcAddr
			var ibuf *hostmem.Buffer
			if input != "" {
				data, err := os.ReadFile(input)
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				size = int64(len(data))
				ibuf, err = hostmem.Alloc(len(data))
				if err != nil {
					return fmt.Errorf("allocate source buffer: %w", err)
				}
				defer ibuf.Free()
				copy(ibuf.Bytes(), data)
				typeIn = accel.AddrTypeHostDRAM
				addrIn = ibuf.Addr()
				log.Info("read input data", "bytes", size, "file", input)
			} else if addrIn == 0 && typeIn == accel.AddrTypeHostDRAM {
				return fmt.Errorf("no source: give --input or --src-addr")
			}
			if size <= 0 || size > math.MaxUint32 {
				return fmt.Errorf("transfer size %d out of range", size)
			}

			addrOut := dstAddr
			var obuf *hostmem.Buffer
			if addrOut == 0 && typeOut == accel.AddrTypeHostDRAM {
				setSize := size
				if verify {
					setSize += trailingLen
				}
				obuf, err = hostmem.Alloc(int(setSize))
				if err != nil {
					return fmt.Errorf("allocate destination buffer: %w", err)
				}
				defer obuf.Free()
				addrOut = obuf.Addr()
			}

			log.Info("job parameters",
				"action", actionName,
				"type_in", typeIn.String(), "addr_in", fmt.Sprintf("%016x", addrIn),
				"type_out", typeOut.String(), "addr_out", fmt.Sprintf("%016x", addrOut),
				"size", size)

			in, err := accel.Set(addrIn, uint32(size), typeIn,
				accel.AddrFlagAddr|accel.AddrFlagSrc)
			if err != nil {
				return err
			}
			out, err := accel.Set(addrOut, uint32(size), typeOut,
				accel.AddrFlagAddr|accel.AddrFlagDst|accel.AddrFlagEnd)
			if err != nil {
				return err
			}
			job, err := accel.NewJob([]accel.Addr{in, out}, nil)
			if err != nil {
				return err
			}

			layout, err := loadLayoutOption()
			if err != nil {
				return err
			}
			c, err := card.Open(cardID, card.Options{Layout: layout, Logger: log})
			if err != nil {
				return fmt.Errorf("open card %s: %w", cardID, err)
			}
			defer c.Close()

			mode := card.NotifyIRQ
			if noIRQ {
				mode = card.NotifyPoll
			}
			action, err := c.Attach(actionType, card.AttachOptions{Mode: mode})
			if err != nil {
				return fmt.Errorf("attach action 0x%08x: %w", actionType, err)
			}

			start := time.Now()
			execErr := action.Execute(ctx, job, execTimeout)
			elapsed := time.Since(start)
			if execErr != nil {
				return fmt.Errorf("job execution: %w", execErr)
			}

			if output != "" && obuf != nil {
				if err := os.WriteFile(output, obuf.Bytes()[:size], 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				log.Info("wrote output data", "bytes", size, "file", output)
			}

			if !job.Retc().Ok() {
				return fmt.Errorf("action reported %s (0x%04x)", job.Retc(), uint32(job.Retc()))
			}

			if verify {
				if ibuf != nil && obuf != nil {
					if err := verifyCopy(ibuf.Bytes(), obuf.Bytes(), int(size)); err != nil {
						return fmt.Errorf("verification: %w", err)
					}
					log.Info("verification passed")
				} else {
					log.Warn("verification works currently only with HOST_DRAM")
				}
			}

			log.Info("job complete", "retc", job.Retc().String(),
				"elapsed_us", elapsed.Microseconds())
			return nil
		},
	}
}

// parseActionType maps a CLI action name to its type register value.
func parseActionType(name string) (uint32, error) {
	switch strings.ToLower(name) {
	case "helloworld":
		return device.ActionTypeHelloWorld, nil
	case "memcopy":
		return device.ActionTypeMemcopy, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(name, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown action %q", name)
	}
	return uint32(v), nil
}

// loadLayoutOption reads the --layout profile when one was given.
func loadLayoutOption() (*accel.Layout, error) {
	if layoutPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(layoutPath)
	if err != nil {
		return nil, fmt.Errorf("read layout profile: %w", err)
	}
	l, err := accel.LoadLayout(data)
	if err != nil {
		return nil, fmt.Errorf("layout profile %s: %w", layoutPath, err)
	}
	return &l, nil
}
