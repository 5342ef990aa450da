// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.
// Modifications for sbrk-style reservation.

//go:build darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd

package sbrk

import (
	"golang.org/x/sys/unix"
)

// reserve maps size bytes of anonymous, shared memory and returns it as a
// byte slice. The whole region is reserved once; the allocator built on
// top never gives any of it back until Region.Close.
func reserve(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
}

func release(b []byte) error {
	return unix.Munmap(b)
}
