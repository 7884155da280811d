//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Pack runs the packer CLI against a sample input directory, useful
// for smoke-testing a build without a full test invocation.
func (Run) Pack() error {
	mg.Deps(Build.Amberpack)
	fmt.Println("Run amberpack...")
	_, err := executeCmd("./bin/amberpack", withArgs("-i", "testdata/assets", "-o", "testdata/out.pkg", "-f"), withStream())
	return err
}

// Mount runs the manager inspection CLI against a previously packed
// output.
func (Run) Mount() error {
	mg.Deps(Build.Ambermount)
	fmt.Println("Run ambermount...")
	_, err := executeCmd("./bin/ambermount", withArgs("testdata/out.pkg"), withStream())
	return err
}
