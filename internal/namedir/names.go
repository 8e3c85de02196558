package namedir

// Names is the fixed, ordered pool of default display names, kept exactly
// as the animal-name table it was derived from -- duplicate entries and
// all. The pool is deliberately not deduplicated: Add's sequence-advancement
// loop treats a repeated name exactly like any other collision and simply
// moves on to the next index.
var Names = [100]string{
	"Alligator", "Bear", "Camel", "Dolphin", "Eagle", "Fox", "Goose", "Hen", "Iguana", "Jackal",
	"Cow", "Elephant", "Panda", "Turtle", "Tortoise", "Crocodile", "Rabbit", "Porcupine", "Hare", "Rat",
	"Lion", "Pigeon", "Albatross", "Crow", "Fish", "Horse", "Frog", "Whale", "Cat", "Donkey",
	"Squirrel", "Ostrich", "Tiger", "Goat", "Leopard", "Emu", "Armadillo", "Eel", "Cheetah", "Fox",
	"Wolf", "Beagle", "Gorilla", "Monkey", "Beaver", "Orangutan", "Antelope", "Bat", "Badger", "Mammoth",
	"Giraffe", "Hermit", "Crab", "Giant", "Panda", "Hamster", "Cobra", "Whale", "Shark", "Elk",
	"Dog", "Hawk", "Deer", "Chameleon", "Hippo", "Jaguar", "Chihuahua", "Cobra", "Ibex", "Lizard",
	"Koala", "Kangaroo", "Panther", "Llama", "Dodo", "Boar", "Rhino", "Hedgehog", "Zebra", "Snake",
	"Possum", "Wombat", "Bison", "Bull", "Buffalo", "Sheep", "Meerkat", "Mouse", "Otter", "Sloth",
	"Owl", "Vulture", "Flamingo", "Racoon", "Mole", "Duck", "Swan", "Lynx", "Monitor", "Lemur",
}
