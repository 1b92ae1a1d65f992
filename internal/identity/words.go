package identity

// The lists are part of the derivation: reordering or editing them changes
// every existing user's nickname.

var adjectives = []string{
	"Agile", "Amber", "Ancient", "Arctic", "Bold", "Brave", "Breezy", "Bright",
	"Brisk", "Bronze", "Calm", "Candid", "Clever", "Cobalt", "Cosmic", "Crimson",
	"Curious", "Daring", "Dapper", "Dusky", "Eager", "Electric", "Emerald", "Epic",
	"Fancy", "Fearless", "Fierce", "Fluffy", "Frosty", "Gentle", "Giant", "Gilded",
	"Glad", "Golden", "Grand", "Happy", "Hardy", "Hidden", "Humble", "Icy",
	"Indigo", "Jolly", "Jovial", "Keen", "Kind", "Lively", "Lucky", "Lunar",
	"Magic", "Mellow", "Merry", "Mighty", "Misty", "Modest", "Nimble", "Noble",
	"Obsidian", "Odd", "Olive", "Patient", "Plucky", "Polar", "Proud", "Quick",
	"Quiet", "Radiant", "Rapid", "Rusty", "Sage", "Scarlet", "Serene", "Shiny",
	"Silent", "Silver", "Sleek", "Sly", "Smooth", "Snowy", "Solar", "Sonic",
	"Spicy", "Steady", "Stellar", "Stormy", "Sturdy", "Sunny", "Swift", "Tidy",
	"Tiny", "Tranquil", "Turbo", "Upbeat", "Valiant", "Velvet", "Vivid", "Wandering",
	"Wild", "Wise", "Witty", "Zany", "Zealous", "Zesty", "Wobbly", "Woolly",
	"Twinkling", "Thundering", "Shimmering", "Mysterious", "Adventurous", "Whimsical",
}

var nouns = []string{
	"Badger", "Bat", "Bear", "Beaver", "Bison", "Boar", "Bot", "Buffalo",
	"Camel", "Cat", "Cheetah", "Cobra", "Condor", "Coyote", "Crab", "Crane",
	"Crow", "Deer", "Dingo", "Dolphin", "Dove", "Dragon", "Duck", "Eagle",
	"Eel", "Elk", "Falcon", "Ferret", "Finch", "Fox", "Frog", "Gecko",
	"Gibbon", "Goat", "Goose", "Gopher", "Hawk", "Heron", "Hippo", "Horse",
	"Husky", "Ibex", "Iguana", "Jackal", "Jaguar", "Koala", "Lemur", "Leopard",
	"Lion", "Llama", "Lynx", "Macaw", "Mole", "Moose", "Mouse", "Narwhal",
	"Newt", "Ocelot", "Orca", "Otter", "Owl", "Panda", "Panther", "Parrot",
	"Pelican", "Penguin", "Pigeon", "Puffin", "Puma", "Quail", "Rabbit", "Raccoon",
	"Raven", "Rhino", "Robot", "Salmon", "Seal", "Shark", "Sloth", "Snail",
	"Sparrow", "Spider", "Squid", "Stork", "Swan", "Tapir", "Tiger", "Toad",
	"Toucan", "Turtle", "Viper", "Vulture", "Walrus", "Wasp", "Weasel", "Whale",
	"Wolf", "Wombat", "Yak", "Zebra", "Android", "Cyborg", "Gizmo", "Widget",
	"Hummingbird", "Salamander", "Chameleon", "Porcupine", "Armadillo", "Hedgehog",
}
