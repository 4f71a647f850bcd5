package main

import (
	"fmt"
	"log"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/gomanip/manipulator"
	"github.com/samuelfneumann/gomanip/physics/solid"
	"github.com/samuelfneumann/gomanip/utils/progressbar"
)

func main() {
	var seed uint64 = 192382
	episodes := 10

	// Create the environment
	config := manipulator.NewConfig()
	config.RandomizeTextures = true
	config.RandomizeCamera = true
	config.RandomizeObjects = true
	config.RandomizeArm = true

	env, step, err := manipulator.New(config, solid.New(), 0.99, seed, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(env.ObservationSpec())
	fmt.Println(env.ActionSpec())

	// Random agent: actions drawn uniformly from the action bounds
	action := distuv.Uniform{
		Min: -1.0,
		Max: 1.0,
		Src: rand.NewSource(seed),
	}
	numActions := env.ActionSpec().Shape.Len()

	bar := progressbar.New(50, episodes)
	for i := 0; i < episodes; i++ {
		episodeReturn := 0.0
		steps := 0

		for !step.Last() {
			a := mat.NewVecDense(numActions, nil)
			for j := 0; j < numActions; j++ {
				a.SetVec(j, action.Rand())
			}

			step, _, err = env.Step(a)
			if err != nil {
				log.Fatal(err)
			}
			episodeReturn += step.Reward
			steps++
		}
		bar.Increment()
		bar.Display()
		fmt.Printf("  episode %d: return %.1f over %d steps\n",
			i, episodeReturn, steps)

		step, err = env.Reset()
		if err != nil {
			log.Fatal(err)
		}
	}
	bar.Close()
}
