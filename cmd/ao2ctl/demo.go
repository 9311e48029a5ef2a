package main

import (
	"strings"

	"github.com/itbidhan/asterisk/container"
	"github.com/itbidhan/asterisk/internal/obslog"
	"github.com/itbidhan/asterisk/obj"
	"github.com/itbidhan/asterisk/registry"
)

// newDemoRegistry builds a registry with two sample containers, so
// `ao2ctl list`/`stats`/`check` have something to show when run
// without a host process embedding this package. A host application
// links registry.New itself and registers its own containers instead.
func newDemoRegistry(logger obslog.Logger) (*registry.Registry, error) {
	reg, err := registry.New(logger)
	if err != nil {
		return nil, err
	}

	sessions, err := container.NewList[string](
		func(a, b *string) int { return strings.Compare(*a, *b) }, nil,
		container.Options{Dups: container.DupsAllow})
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"sip:alice", "sip:bob"} {
		h, err := obj.Alloc(name, nil)
		if err != nil {
			return nil, err
		}
		if _, err := sessions.Link(h, 0); err != nil {
			return nil, err
		}
		h.Release()
	}
	if _, err := reg.Register("sessions", sessions); err != nil {
		return nil, err
	}

	channels, err := container.NewList[string](
		func(a, b *string) int { return strings.Compare(*a, *b) }, nil,
		container.Options{Dups: container.DupsAllow})
	if err != nil {
		return nil, err
	}
	if _, err := reg.Register("channels", channels); err != nil {
		return nil, err
	}

	return reg, nil
}
