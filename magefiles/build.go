//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Amberpack builds the packer CLI binary.
func (Build) Amberpack() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/amberpack", "./cmd/amberpack"), withStream())
	return err
}

// Ambermount builds the manager inspection CLI binary.
func (Build) Ambermount() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/ambermount", "./cmd/ambermount"), withStream())
	return err
}

// All builds every binary.
func (Build) All() error {
	mg.Deps(Build.Amberpack, Build.Ambermount)
	return nil
}
