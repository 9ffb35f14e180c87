package main

import "github.com/probgo/chamber/cmd"

// TODO: checkpointing for chains (so we can freeze and continue across
//       processes) - model/sampler/chain state would all need serialization

func main() {
	cmd.Execute()
}
