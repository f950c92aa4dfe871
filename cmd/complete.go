package cmd

import (
	"flag"

	"github.com/etnz/profit"
	"github.com/etnz/profit/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Complete answers a shell completion request for the commands of cdr, and
// exits if there was one. Otherwise it returns without doing anything.
//
// Install the completion with COMP_INSTALL=1 pm.
func Complete(cdr *subcommands.Commander) {
	complete.Complete(cdr.Name(), completion(cdr))
}

func completion(cdr *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: predictFlags(flag.CommandLine),
	}
	cdr.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(f)
		sub := &complete.Command{Flags: predictFlags(f)}
		switch c.Name() {
		case "topic":
			topics, _ := docs.GetAllTopics()
			sub.Args = predict.Set(topics)
		case "import":
			sub.Args = predict.Files("*.json")
		case "help":
			var names []string
			cdr.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) { names = append(names, c.Name()) })
			sub.Args = predict.Set(names)
		}
		root.Sub[c.Name()] = sub
	})
	return root
}

func predictFlags(f *flag.FlagSet) map[string]complete.Predictor {
	flags := map[string]complete.Predictor{}
	f.VisitAll(func(fl *flag.Flag) {
		flags[fl.Name] = predictFlag(fl)
	})
	return flags
}

func predictFlag(fl *flag.Flag) complete.Predictor {
	if b, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	switch fl.Name {
	case "source":
		return predict.Set{"funded", "a", "b"}
	case "kind":
		return predict.Set{string(profit.Profit), string(profit.Loss), string(profit.Deposit), string(profit.Withdrawal)}
	case "term":
		return predict.Set{"short", "long"}
	case "set":
		var buckets []string
		for _, b := range profit.Buckets() {
			buckets = append(buckets, b.String()+"=")
		}
		return predict.Set(buckets)
	case "config":
		return predict.Files("*.yaml")
	case "brackets":
		return predict.Files("*.json")
	case "o":
		return predict.Files("*")
	case "dir":
		return predict.Dirs("*")
	}
	return predict.Something
}
